package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

const tokenAddr = "0x5425890298aed601595a70AB815c96711a31Bc65"

type stubCaller struct {
	balance  *big.Int
	decimals int64
	err      error
	calls    int
}

func (c *stubCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	// decimals() carries only the 4-byte selector; balanceOf(address) adds a
	// 32-byte argument.
	if len(msg.Data) == 4 {
		return common.LeftPadBytes(big.NewInt(c.decimals).Bytes(), 32), nil
	}
	return common.LeftPadBytes(c.balance.Bytes(), 32), nil
}

func TestReadScalesByTokenDecimals(t *testing.T) {
	caller := &stubCaller{balance: big.NewInt(1_500_000), decimals: 6}
	reader, err := NewERC20Reader(caller, tokenAddr)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	got, err := reader.Read(context.Background(), "0xaa00000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "1.5" {
		t.Fatalf("expected 1.5, got %q", got)
	}
}

func TestReadCachesDecimals(t *testing.T) {
	caller := &stubCaller{balance: big.NewInt(250), decimals: 2}
	reader, err := NewERC20Reader(caller, tokenAddr)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	ctx := context.Background()
	holder := "0xaa00000000000000000000000000000000000001"
	if _, err := reader.Read(ctx, holder); err != nil {
		t.Fatalf("first read: %v", err)
	}
	callsAfterFirst := caller.calls

	if _, err := reader.Read(ctx, holder); err != nil {
		t.Fatalf("second read: %v", err)
	}

	// Second read should only issue the balanceOf call.
	if caller.calls != callsAfterFirst+1 {
		t.Fatalf("expected decimals to be cached, calls went %d -> %d", callsAfterFirst, caller.calls)
	}
}

func TestReadFailuresAreChainReadErrors(t *testing.T) {
	caller := &stubCaller{err: errors.New("connection refused")}
	reader, err := NewERC20Reader(caller, tokenAddr)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	if _, err := reader.Read(context.Background(), "0xaa00000000000000000000000000000000000001"); !errors.Is(err, ErrChainRead) {
		t.Fatalf("expected ErrChainRead, got %v", err)
	}

	if _, err := reader.Read(context.Background(), "not-an-address"); !errors.Is(err, ErrChainRead) {
		t.Fatalf("expected ErrChainRead for bad holder, got %v", err)
	}
}

func TestNewERC20ReaderRejectsBadContractAddress(t *testing.T) {
	if _, err := NewERC20Reader(&stubCaller{}, "bogus"); err == nil {
		t.Fatalf("expected error for invalid contract address")
	}
}

func TestFormatUnits(t *testing.T) {
	if got := FormatUnits(big.NewInt(1_500_000), 6); got != "1.5" {
		t.Fatalf("expected 1.5, got %q", got)
	}
	if got := FormatUnits(big.NewInt(0), 6); got != "0" {
		t.Fatalf("expected 0, got %q", got)
	}
	if got := FormatUnits(big.NewInt(42), 0); got != "42" {
		t.Fatalf("expected 42, got %q", got)
	}
}
