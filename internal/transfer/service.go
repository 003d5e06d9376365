package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesa-bridge/pesa_bridge/internal/history"
	"github.com/pesa-bridge/pesa_bridge/internal/notification"
	"github.com/pesa-bridge/pesa_bridge/internal/settlement"
	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

var (
	// ErrInvalidAmount occurs when the amount does not parse as a positive decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidRecipient occurs when the phone number is empty or the mobile
	// money provider or country is not recognized.
	ErrInvalidRecipient = errors.New("invalid recipient")

	// ErrRequestInFlight occurs when a prior submission has not yet reached a
	// terminal status. Submissions are strictly serialized per service instance.
	ErrRequestInFlight = errors.New("transfer request already in flight")

	// ErrNoPendingRequest occurs when Reconcile is called without an
	// outstanding pending transfer.
	ErrNoPendingRequest = errors.New("no pending transfer request")
)

// Recognized mobile money rails and destination countries.
var (
	recognizedProviders = map[string]bool{"mpesa": true, "airtel": true}
	recognizedCountries = map[string]bool{"ke": true, "ug": true, "tz": true, "rw": true}
)

// Request tracks one user-initiated payout submission.
type Request struct {
	ID            string
	Amount        string
	Phone         string
	Provider      string
	Country       string
	Status        settlement.Status
	Reference     string
	FailureReason string
	CreatedAt     time.Time
}

// SubmitInput captures the data needed to initiate a payout.
type SubmitInput struct {
	Amount   string
	Phone    string
	Provider string
	Country  string
}

// Result describes the outcome of a submission or reconciliation.
type Result struct {
	RequestID     string
	Status        settlement.Status
	Reference     string
	FailureReason string
}

// Service orchestrates balance-gated mobile-money payouts against the wallet
// session and the settlement rail.
type Service struct {
	session  *wallet.Session
	client   settlement.MobileMoneyClient
	store    history.Store
	notifier notification.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	current *Request
}

// NewService constructs a transfer orchestrator.
func NewService(session *wallet.Session, client settlement.MobileMoneyClient, store history.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{session: session, client: client, store: store, notifier: notifier, logger: logger}
}

// Submit runs the pre-flight ladder, initiates the payout, and reconciles the
// balance on synchronous settlement. Validation errors are returned before any
// rail call is made; a stub client in tests can assert zero calls.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Result, error) {
	s.mu.Lock()

	if s.current != nil && s.current.Status == settlement.StatusPending {
		s.mu.Unlock()
		return Result{}, ErrRequestInFlight
	}

	snap := s.session.Snapshot()
	if snap.State != wallet.StateConnected {
		s.mu.Unlock()
		return Result{}, wallet.ErrNotConnected
	}
	if !snap.NetworkMatch {
		s.mu.Unlock()
		return Result{}, wallet.ErrWrongNetwork
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil || !amount.IsPositive() {
		s.mu.Unlock()
		return Result{}, ErrInvalidAmount
	}

	if input.Phone == "" || !recognizedProviders[input.Provider] || !recognizedCountries[input.Country] {
		s.mu.Unlock()
		return Result{}, ErrInvalidRecipient
	}

	balance, err := decimal.NewFromString(snap.Balance)
	if err != nil {
		balance = decimal.Zero
	}
	if amount.GreaterThan(balance) {
		s.mu.Unlock()
		return Result{}, wallet.ErrInsufficientBalance
	}

	req := &Request{
		ID:        uuid.NewString(),
		Amount:    amount.String(),
		Phone:     input.Phone,
		Provider:  input.Provider,
		Country:   input.Country,
		Status:    settlement.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.current = req
	s.mu.Unlock()

	decision, err := s.client.InitiateTransfer(ctx, settlement.TransferRequest{
		Amount:   req.Amount,
		Phone:    req.Phone,
		Provider: req.Provider,
		Country:  req.Country,
	})
	if err != nil {
		s.finalize(ctx, req, settlement.StatusFailed, "", err.Error())
		return s.result(req), fmt.Errorf("initiate transfer: %w", err)
	}
	if !decision.Accepted {
		s.finalize(ctx, req, settlement.StatusFailed, decision.Reference, decision.FailureReason)
		return s.result(req), fmt.Errorf("%w: %s", settlement.ErrRejected, decision.FailureReason)
	}

	if decision.Status == settlement.StatusSucceeded {
		// The rail settled synchronously; re-read the on-chain balance once.
		s.finalize(ctx, req, settlement.StatusSucceeded, decision.Reference, "")
		return s.result(req), nil
	}

	// Accepted but not final: keep the request pending and expose the
	// reference for later reconciliation.
	s.mu.Lock()
	req.Reference = decision.Reference
	s.mu.Unlock()
	return s.result(req), nil
}

// Reconcile polls the rail for the outstanding pending payout and finalizes it
// if a terminal status is reported.
func (s *Service) Reconcile(ctx context.Context) (Result, error) {
	s.mu.Lock()
	req := s.current
	if req == nil || req.Status != settlement.StatusPending || req.Reference == "" {
		s.mu.Unlock()
		return Result{}, ErrNoPendingRequest
	}
	reference := req.Reference
	s.mu.Unlock()

	status, err := s.client.PollStatus(ctx, reference)
	if err != nil {
		return s.result(req), fmt.Errorf("poll status: %w", err)
	}

	switch status {
	case settlement.StatusSucceeded:
		s.finalize(ctx, req, settlement.StatusSucceeded, reference, "")
	case settlement.StatusFailed:
		s.finalize(ctx, req, settlement.StatusFailed, reference, "settlement failed")
	}
	return s.result(req), nil
}

// Current returns the latest submission, or nil when none was made.
func (s *Service) Current() *Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// finalize moves the request to a terminal status, reconciles the observed
// balance on success, and records the outcome.
func (s *Service) finalize(ctx context.Context, req *Request, status settlement.Status, reference, failureReason string) {
	s.mu.Lock()
	req.Status = status
	req.Reference = reference
	req.FailureReason = failureReason
	s.mu.Unlock()

	if status == settlement.StatusSucceeded {
		if err := s.session.RefreshBalance(ctx); err != nil {
			s.logger.Warn("balance refresh after settlement", "request_id", req.ID, "error", err)
		}
		if s.notifier != nil {
			_ = s.notifier.Send(ctx, notification.Message{
				Kind:        notification.KindTransferSettled,
				Destination: req.Phone,
				Body:        fmt.Sprintf("Sent %s USDC to %s via %s", req.Amount, req.Phone, req.Provider),
			})
		}
	}

	if s.store != nil {
		entry := history.Entry{
			ID:        req.ID,
			Kind:      history.KindTransfer,
			Address:   s.session.Address(),
			Amount:    req.Amount,
			Recipient: req.Phone,
			Reference: reference,
			Status:    string(status),
			CreatedAt: req.CreatedAt,
		}
		if err := s.store.Record(ctx, entry); err != nil {
			s.logger.Warn("record transfer history", "request_id", req.ID, "error", err)
		}
	}
}

func (s *Service) result(req *Request) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{
		RequestID:     req.ID,
		Status:        req.Status,
		Reference:     req.Reference,
		FailureReason: req.FailureReason,
	}
}
