package faucet

import (
	"context"
	"errors"
	"testing"

	"github.com/pesa-bridge/pesa_bridge/internal/logging"
	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

type stubProvider struct {
	accounts []string
	chainID  uint64
}

func (p *stubProvider) RequestAccounts(_ context.Context) ([]string, error) { return p.accounts, nil }
func (p *stubProvider) Accounts(_ context.Context) ([]string, error)        { return p.accounts, nil }
func (p *stubProvider) ChainID(_ context.Context) (uint64, error)           { return p.chainID, nil }
func (p *stubProvider) SwitchChain(_ context.Context, _ uint64) error       { return nil }
func (p *stubProvider) AddChain(_ context.Context, _ wallet.ChainParams) error {
	return nil
}

type stubReader struct {
	balance string
	reads   int
}

func (r *stubReader) Read(_ context.Context, _ string) (string, error) {
	r.reads++
	return r.balance, nil
}

func TestDripRefreshesBalance(t *testing.T) {
	provider := &stubProvider{accounts: []string{"0xaa00000000000000000000000000000000000001"}, chainID: 43113}
	reader := &stubReader{balance: "25"}
	sess := wallet.NewSession(provider, reader, wallet.ChainParams{ChainID: 43113}, logging.Discard())
	if _, err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	svc := NewService(sess, nil, logging.Discard())

	readsBefore := reader.reads
	res, err := svc.Drip(context.Background(), "10")
	if err != nil {
		t.Fatalf("drip: %v", err)
	}

	if res.Address != "0xaa00000000000000000000000000000000000001" || res.Amount != "10" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Reference == "" {
		t.Fatalf("expected a drip reference")
	}
	if got := reader.reads - readsBefore; got != 1 {
		t.Fatalf("expected one balance refresh, got %d", got)
	}
}

func TestDripNotConnected(t *testing.T) {
	sess := wallet.NewSession(&stubProvider{}, &stubReader{}, wallet.ChainParams{ChainID: 43113}, logging.Discard())
	svc := NewService(sess, nil, logging.Discard())

	if _, err := svc.Drip(context.Background(), "10"); !errors.Is(err, wallet.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestDripInvalidAmount(t *testing.T) {
	provider := &stubProvider{accounts: []string{"0xaa00000000000000000000000000000000000001"}, chainID: 43113}
	sess := wallet.NewSession(provider, &stubReader{balance: "25"}, wallet.ChainParams{ChainID: 43113}, logging.Discard())
	if _, err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	svc := NewService(sess, nil, logging.Discard())
	ctx := context.Background()

	for _, amount := range []string{"0", "-5", "abc", "500"} {
		if _, err := svc.Drip(ctx, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", amount, err)
		}
	}
}
