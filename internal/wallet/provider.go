package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrProviderUnavailable occurs when no wallet provider was injected into
	// the session.
	ErrProviderUnavailable = errors.New("wallet provider unavailable")

	// ErrUserRejected indicates the account-access prompt was denied.
	ErrUserRejected = errors.New("wallet access rejected")

	// ErrUnknownChain indicates the provider has no registration for the
	// requested chain; callers may register it via AddChain and retry.
	ErrUnknownChain = errors.New("chain not registered with provider")
)

// ChainParams describes a network the provider can be asked to register.
type ChainParams struct {
	ChainID        uint64
	Name           string
	RPCURL         string
	CurrencySymbol string
	ExplorerURL    string
}

// Provider is the injected wallet provider boundary. The session never assumes
// a concrete implementation beyond this surface: request accounts, report the
// current chain, and switch or register chains.
type Provider interface {
	// RequestAccounts prompts for account access and returns the granted
	// addresses. Fails with ErrUserRejected when access is denied.
	RequestAccounts(ctx context.Context) ([]string, error)

	// Accounts returns already-authorized addresses without prompting.
	Accounts(ctx context.Context) ([]string, error)

	// ChainID reports the chain the provider is currently connected to.
	ChainID(ctx context.Context) (uint64, error)

	// SwitchChain moves the provider to the given chain. Fails with
	// ErrUnknownChain when the chain has not been registered.
	SwitchChain(ctx context.Context, chainID uint64) error

	// AddChain registers a chain so a later SwitchChain can succeed.
	AddChain(ctx context.Context, params ChainParams) error
}

// NodeProvider implements Provider on top of go-ethereum RPC clients. It
// serves a configured account list (a local hot-wallet style setup) and keeps
// a registry of chain id to RPC endpoint so SwitchChain can re-dial.
type NodeProvider struct {
	mu       sync.Mutex
	accounts []string
	rpcURLs  map[uint64]string
	client   *ethclient.Client
	chainID  uint64
}

// NewNodeProvider dials the RPC endpoint registered for the initial chain.
func NewNodeProvider(ctx context.Context, accounts []string, chainID uint64, rpcURLs map[uint64]string) (*NodeProvider, error) {
	url, ok := rpcURLs[chainID]
	if !ok {
		return nil, fmt.Errorf("no rpc url registered for chain %d", chainID)
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	urls := make(map[uint64]string, len(rpcURLs))
	for id, u := range rpcURLs {
		urls[id] = u
	}
	return &NodeProvider{accounts: accounts, rpcURLs: urls, client: client, chainID: chainID}, nil
}

// RequestAccounts returns the configured account list. An empty list is
// treated as a denied prompt.
func (p *NodeProvider) RequestAccounts(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.accounts) == 0 {
		return nil, ErrUserRejected
	}
	return append([]string(nil), p.accounts...), nil
}

// Accounts returns the configured accounts without any access prompt.
func (p *NodeProvider) Accounts(_ context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.accounts...), nil
}

// ChainID queries the connected node for its chain id.
func (p *NodeProvider) ChainID(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("query chain id: %w", err)
	}
	return id.Uint64(), nil
}

// SwitchChain re-dials against the RPC endpoint registered for the target chain.
func (p *NodeProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	url, ok := p.rpcURLs[chainID]
	p.mu.Unlock()
	if !ok {
		return ErrUnknownChain
	}

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return fmt.Errorf("dial chain %d: %w", chainID, err)
	}

	p.mu.Lock()
	old := p.client
	p.client = client
	p.chainID = chainID
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// AddChain registers the chain's RPC endpoint for later switches.
func (p *NodeProvider) AddChain(_ context.Context, params ChainParams) error {
	if params.RPCURL == "" {
		return fmt.Errorf("chain %d has no rpc url", params.ChainID)
	}
	p.mu.Lock()
	p.rpcURLs[params.ChainID] = params.RPCURL
	p.mu.Unlock()
	return nil
}
