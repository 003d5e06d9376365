package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pesa-bridge/pesa_bridge/internal/chain"
)

var (
	// ErrNotConnected occurs when a value-moving operation is attempted
	// without a connected wallet.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrWrongNetwork occurs when the wallet is connected to a chain other
	// than the expected one.
	ErrWrongNetwork = errors.New("wallet connected to wrong network")

	// ErrInsufficientBalance occurs when a requested amount exceeds the
	// observed token balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrBalanceRead indicates a failed balance refresh; the previous value is
	// retained and the refresh can be re-invoked.
	ErrBalanceRead = errors.New("balance read failed")

	// ErrNetworkSwitchFailed indicates the provider could not move to the
	// expected network. The session stays connected with networkMatch false.
	ErrNetworkSwitchFailed = errors.New("network switch failed")
)

// State is the wallet connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// EventKind discriminates externally-fired wallet changes.
type EventKind int

const (
	// EventAccountsChanged signals the provider's account list changed.
	EventAccountsChanged EventKind = iota
	// EventChainChanged signals the provider moved to a different chain.
	EventChainChanged
)

// Event is the single external-change payload the session accepts. Any event
// source (polling, push, a test harness) can drive the session through it.
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  uint64
}

// Snapshot is a point-in-time copy of the session's observable state.
type Snapshot struct {
	State        State
	Address      string
	ChainID      uint64
	NetworkMatch bool
	Balance      string
}

// Session is the single source of truth for whether the user can authorize
// value-moving actions right now. One live instance exists per app instance;
// both orchestrators read it and only RefreshBalance writes the balance.
type Session struct {
	provider Provider
	reader   chain.Reader
	expected ChainParams
	logger   *slog.Logger

	mu           sync.Mutex
	state        State
	address      string
	chainID      uint64
	networkMatch bool
	balance      string
}

// NewSession builds a disconnected session. The provider may be nil, in which
// case Connect fails with ErrProviderUnavailable.
func NewSession(provider Provider, reader chain.Reader, expected ChainParams, logger *slog.Logger) *Session {
	return &Session{
		provider: provider,
		reader:   reader,
		expected: expected,
		logger:   logger,
		state:    StateDisconnected,
		balance:  "0",
	}
}

// Connect requests account access from the injected provider, populates the
// address, computes the network match, and performs an initial balance fetch.
// The balance fetch is non-fatal: a read failure leaves the balance at "0" and
// is only logged.
func (s *Session) Connect(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider == nil {
		return s.snapshotLocked(), ErrProviderUnavailable
	}

	s.state = StateConnecting

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.resetLocked()
		if errors.Is(err, ErrUserRejected) {
			return s.snapshotLocked(), ErrUserRejected
		}
		return s.snapshotLocked(), fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		s.resetLocked()
		return s.snapshotLocked(), ErrUserRejected
	}

	s.address = strings.ToLower(accounts[0])
	s.state = StateConnected

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		// Connected but with unknown network identity; dependent operations
		// will refuse until a chain-changed event or a successful switch.
		s.logger.Warn("query chain id", "error", err)
		s.networkMatch = false
	} else {
		s.chainID = chainID
		s.networkMatch = chainID == s.expected.ChainID
	}

	if err := s.refreshBalanceLocked(ctx); err != nil {
		s.logger.Warn("initial balance fetch", "address", s.address, "error", err)
	}

	return s.snapshotLocked(), nil
}

// Disconnect resets the session to its disconnected defaults. Idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// RefreshBalance re-reads the token balance for the current address. It is a
// no-op when disconnected. On a read failure the previous balance is retained
// and ErrBalanceRead is returned; callers treat it as non-fatal.
func (s *Session) RefreshBalance(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return nil
	}
	return s.refreshBalanceLocked(ctx)
}

// RequestNetworkSwitch asks the provider to move to the expected network,
// falling back to a chain registration when the provider does not know it. On
// any failure the session stays connected and ErrNetworkSwitchFailed is
// returned; networkMatch remains false.
func (s *Session) RequestNetworkSwitch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider == nil {
		return ErrProviderUnavailable
	}

	err := s.provider.SwitchChain(ctx, s.expected.ChainID)
	if errors.Is(err, ErrUnknownChain) {
		if addErr := s.provider.AddChain(ctx, s.expected); addErr != nil {
			s.logger.Warn("register expected chain", "chain_id", s.expected.ChainID, "error", addErr)
			return fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, addErr)
		}
		err = s.provider.SwitchChain(ctx, s.expected.ChainID)
	}
	if err != nil {
		s.logger.Warn("switch chain", "chain_id", s.expected.ChainID, "error", err)
		return fmt.Errorf("%w: %v", ErrNetworkSwitchFailed, err)
	}

	s.chainID = s.expected.ChainID
	s.networkMatch = true
	return nil
}

// Apply feeds an externally-observed change into the session. Spurious events
// that do not alter the address or chain id are ignored so the balance is not
// refetched redundantly.
func (s *Session) Apply(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			s.resetLocked()
			return nil
		}
		if s.state != StateConnected {
			// Account events only matter for a live session.
			return nil
		}
		addr := strings.ToLower(ev.Accounts[0])
		if addr == s.address {
			return nil
		}
		s.address = addr
		s.balance = "0"
		if err := s.refreshBalanceLocked(ctx); err != nil {
			s.logger.Warn("balance fetch after account switch", "address", addr, "error", err)
		}
		return nil

	case EventChainChanged:
		if ev.ChainID == s.chainID {
			return nil
		}
		s.chainID = ev.ChainID
		s.networkMatch = ev.ChainID == s.expected.ChainID
		return nil

	default:
		return fmt.Errorf("unknown wallet event kind %d", ev.Kind)
	}
}

// Snapshot returns a copy of the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Address returns the connected address, or empty when disconnected.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:        s.state,
		Address:      s.address,
		ChainID:      s.chainID,
		NetworkMatch: s.networkMatch,
		Balance:      s.balance,
	}
}

func (s *Session) resetLocked() {
	s.state = StateDisconnected
	s.address = ""
	s.chainID = 0
	s.networkMatch = false
	s.balance = "0"
}

func (s *Session) refreshBalanceLocked(ctx context.Context) error {
	balance, err := s.reader.Read(ctx, s.address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBalanceRead, err)
	}
	s.balance = balance
	return nil
}
