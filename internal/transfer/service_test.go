package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/pesa-bridge/pesa_bridge/internal/history"
	"github.com/pesa-bridge/pesa_bridge/internal/logging"
	"github.com/pesa-bridge/pesa_bridge/internal/settlement"
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

type stubRail struct {
	decision      settlement.TransferDecision
	err           error
	pollStatus    settlement.Status
	initiateCalls int
	pollCalls     int
}

func (r *stubRail) InitiateTransfer(_ context.Context, _ settlement.TransferRequest) (settlement.TransferDecision, error) {
	r.initiateCalls++
	return r.decision, r.err
}

func (r *stubRail) PollStatus(_ context.Context, _ string) (settlement.Status, error) {
	r.pollCalls++
	return r.pollStatus, nil
}

const fujiChainID = 43113

func connectedSession(t *testing.T, balance string) (*wallet.Session, *stubReader) {
	t.Helper()
	provider := &stubProvider{accounts: []string{"0xaa00000000000000000000000000000000000001"}, chainID: fujiChainID}
	reader := &stubReader{balance: balance}
	sess := wallet.NewSession(provider, reader, wallet.ChainParams{ChainID: fujiChainID}, logging.Discard())
	if _, err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect session: %v", err)
	}
	return sess, reader
}

func validInput(amount string) SubmitInput {
	return SubmitInput{Amount: amount, Phone: "+254712345678", Provider: "mpesa", Country: "ke"}
}

func TestSubmitImmediateSettlement(t *testing.T) {
	sess, reader := connectedSession(t, "100.00")
	rail := &stubRail{decision: settlement.TransferDecision{Accepted: true, Reference: "ref-1", Status: settlement.StatusSucceeded}}
	store := history.NewInMemory()
	svc := NewService(sess, rail, store, nil, logging.Discard())

	readsBefore := reader.reads
	res, err := svc.Submit(context.Background(), validInput("50.00"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if res.Status != settlement.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", res.Status)
	}
	if rail.initiateCalls != 1 {
		t.Fatalf("expected one rail call, got %d", rail.initiateCalls)
	}
	if got := reader.reads - readsBefore; got != 1 {
		t.Fatalf("expected exactly one balance refresh after settlement, got %d", got)
	}

	entries, err := store.List(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != history.KindTransfer || entries[0].Status != string(settlement.StatusSucceeded) {
		t.Fatalf("unexpected history entries: %+v", entries)
	}
}

func TestSubmitInsufficientBalance(t *testing.T) {
	sess, _ := connectedSession(t, "10.00")
	rail := &stubRail{decision: settlement.TransferDecision{Accepted: true, Status: settlement.StatusSucceeded}}
	svc := NewService(sess, rail, history.NewInMemory(), nil, logging.Discard())

	_, err := svc.Submit(context.Background(), validInput("50.00"))
	if !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if rail.initiateCalls != 0 {
		t.Fatalf("expected no rail call, got %d", rail.initiateCalls)
	}
}

func TestSubmitNotConnected(t *testing.T) {
	reader := &stubReader{balance: "100.00"}
	sess := wallet.NewSession(&stubProvider{}, reader, wallet.ChainParams{ChainID: fujiChainID}, logging.Discard())
	rail := &stubRail{}
	svc := NewService(sess, rail, history.NewInMemory(), nil, logging.Discard())

	_, err := svc.Submit(context.Background(), validInput("5.00"))
	if !errors.Is(err, wallet.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if rail.initiateCalls != 0 {
		t.Fatalf("expected no rail call, got %d", rail.initiateCalls)
	}
	if reader.reads != 0 {
		t.Fatalf("expected no chain read, got %d", reader.reads)
	}
}

func TestSubmitWrongNetwork(t *testing.T) {
	provider := &stubProvider{accounts: []string{"0xaa00000000000000000000000000000000000001"}, chainID: 1}
	sess := wallet.NewSession(provider, &stubReader{balance: "100.00"}, wallet.ChainParams{ChainID: fujiChainID}, logging.Discard())
	if _, err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	svc := NewService(sess, &stubRail{}, history.NewInMemory(), nil, logging.Discard())

	if _, err := svc.Submit(context.Background(), validInput("5.00")); !errors.Is(err, wallet.ErrWrongNetwork) {
		t.Fatalf("expected ErrWrongNetwork, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	sess, _ := connectedSession(t, "100.00")
	rail := &stubRail{}
	svc := NewService(sess, rail, history.NewInMemory(), nil, logging.Discard())
	ctx := context.Background()

	if _, err := svc.Submit(ctx, validInput("-3")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, err := svc.Submit(ctx, validInput("abc")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for junk, got %v", err)
	}

	input := validInput("5.00")
	input.Phone = ""
	if _, err := svc.Submit(ctx, input); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient for empty phone, got %v", err)
	}

	input = validInput("5.00")
	input.Provider = "unknown-rail"
	if _, err := svc.Submit(ctx, input); !errors.Is(err, ErrInvalidRecipient) {
		t.Fatalf("expected ErrInvalidRecipient for unknown provider, got %v", err)
	}

	if rail.initiateCalls != 0 {
		t.Fatalf("expected no rail calls during validation failures, got %d", rail.initiateCalls)
	}
}

func TestSubmitSerializedWhilePending(t *testing.T) {
	sess, _ := connectedSession(t, "100.00")
	rail := &stubRail{
		decision:   settlement.TransferDecision{Accepted: true, Reference: "ref-9", Status: settlement.StatusPending},
		pollStatus: settlement.StatusSucceeded,
	}
	svc := NewService(sess, rail, history.NewInMemory(), nil, logging.Discard())
	ctx := context.Background()

	res, err := svc.Submit(ctx, validInput("10.00"))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if res.Status != settlement.StatusPending || res.Reference != "ref-9" {
		t.Fatalf("expected pending with reference, got %+v", res)
	}

	if _, err := svc.Submit(ctx, validInput("10.00")); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight, got %v", err)
	}

	recon, err := svc.Reconcile(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if recon.Status != settlement.StatusSucceeded {
		t.Fatalf("expected succeeded after reconcile, got %s", recon.Status)
	}
	if rail.pollCalls != 1 {
		t.Fatalf("expected one poll, got %d", rail.pollCalls)
	}

	// Terminal status unblocks the next submission.
	rail.decision = settlement.TransferDecision{Accepted: true, Reference: "ref-10", Status: settlement.StatusSucceeded}
	if _, err := svc.Submit(ctx, validInput("10.00")); err != nil {
		t.Fatalf("submit after terminal status: %v", err)
	}
}

func TestSubmitRejectedSurfacesReason(t *testing.T) {
	sess, _ := connectedSession(t, "100.00")
	rail := &stubRail{decision: settlement.TransferDecision{Accepted: false, FailureReason: "insufficient float"}}
	svc := NewService(sess, rail, history.NewInMemory(), nil, logging.Discard())
	ctx := context.Background()

	res, err := svc.Submit(ctx, validInput("10.00"))
	if !errors.Is(err, settlement.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if res.Status != settlement.StatusFailed || res.FailureReason != "insufficient float" {
		t.Fatalf("expected failed result with verbatim reason, got %+v", res)
	}

	// A failed request does not block the next submission.
	rail.decision = settlement.TransferDecision{Accepted: true, Status: settlement.StatusSucceeded}
	if _, err := svc.Submit(ctx, validInput("10.00")); err != nil {
		t.Fatalf("submit after failure: %v", err)
	}
}

func TestReconcileWithoutPendingRequest(t *testing.T) {
	sess, _ := connectedSession(t, "100.00")
	svc := NewService(sess, &stubRail{}, history.NewInMemory(), nil, logging.Discard())

	if _, err := svc.Reconcile(context.Background()); !errors.Is(err, ErrNoPendingRequest) {
		t.Fatalf("expected ErrNoPendingRequest, got %v", err)
	}
}
