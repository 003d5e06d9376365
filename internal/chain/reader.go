package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ErrChainRead indicates a failed read against the chain RPC endpoint. Callers
// treat it as recoverable and keep the last known value.
var ErrChainRead = errors.New("chain read failed")

// Minimal ERC-20 view surface: this package only ever reads, it never submits
// transactions.
const erc20ViewABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// Reader looks up the token balance held by an address, scaled to human units.
type Reader interface {
	Read(ctx context.Context, holder string) (string, error)
}

// ERC20Reader reads a token balance via eth_call against a fixed contract.
type ERC20Reader struct {
	caller ethereum.ContractCaller
	token  common.Address
	erc20  abi.ABI

	mu       sync.Mutex
	decimals *uint8
}

// NewERC20Reader builds a reader for the given token contract address.
func NewERC20Reader(caller ethereum.ContractCaller, tokenAddress string) (*ERC20Reader, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid token contract address %q", tokenAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ViewABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &ERC20Reader{
		caller: caller,
		token:  common.HexToAddress(tokenAddress),
		erc20:  parsed,
	}, nil
}

// Read returns the holder's token balance as a decimal string in human units,
// scaled by the token's declared decimals.
func (r *ERC20Reader) Read(ctx context.Context, holder string) (string, error) {
	if !common.IsHexAddress(holder) {
		return "", fmt.Errorf("%w: invalid holder address %q", ErrChainRead, holder)
	}

	dec, err := r.tokenDecimals(ctx)
	if err != nil {
		return "", err
	}

	calldata, err := r.erc20.Pack("balanceOf", common.HexToAddress(holder))
	if err != nil {
		return "", fmt.Errorf("%w: pack balanceOf: %v", ErrChainRead, err)
	}

	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.token, Data: calldata}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	out, err := r.erc20.Unpack("balanceOf", raw)
	if err != nil {
		return "", fmt.Errorf("%w: unpack balanceOf: %v", ErrChainRead, err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return "", fmt.Errorf("%w: unexpected balanceOf result type", ErrChainRead)
	}

	return FormatUnits(balance, dec), nil
}

// tokenDecimals fetches the token's fractional-unit count once and caches it;
// a deployed token never changes its decimals.
func (r *ERC20Reader) tokenDecimals(ctx context.Context) (uint8, error) {
	r.mu.Lock()
	cached := r.decimals
	r.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	calldata, err := r.erc20.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("%w: pack decimals: %v", ErrChainRead, err)
	}

	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.token, Data: calldata}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	out, err := r.erc20.Unpack("decimals", raw)
	if err != nil {
		return 0, fmt.Errorf("%w: unpack decimals: %v", ErrChainRead, err)
	}
	dec, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected decimals result type", ErrChainRead)
	}

	r.mu.Lock()
	r.decimals = &dec
	r.mu.Unlock()
	return dec, nil
}

// FormatUnits scales a raw token amount by the given fractional-unit count and
// renders it as a decimal string, e.g. 1500000 with 6 decimals -> "1.5".
func FormatUnits(amount *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
