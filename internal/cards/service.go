package cards

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
	// ErrInvalidAmount occurs when the funding amount does not parse as a
	// positive decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidLabel occurs when the card label is empty.
	ErrInvalidLabel = errors.New("invalid card label")

	// ErrRequestInFlight occurs when a prior issuance has not yet reached a
	// terminal status.
	ErrRequestInFlight = errors.New("card issuance already in flight")

	// ErrCardNotFound occurs when toggling a card id that does not exist.
	ErrCardNotFound = errors.New("card not found")
)

// VirtualCard is a spending card funded from the wallet balance. Its active
// flag only ever flips after a confirmed provider round-trip.
type VirtualCard struct {
	ID           string
	Label        string
	Last4        string
	ExpMonth     string
	ExpYear      string
	FundedAmount string
	Active       bool
	CreatedAt    time.Time
}

// CreateInput captures the data needed to issue a card.
type CreateInput struct {
	Label  string
	Amount string
}

// Service orchestrates balance-gated virtual card issuance and activation
// toggling against the wallet session and the issuing rail.
type Service struct {
	session  *wallet.Session
	client   settlement.CardClient
	store    history.Store
	notifier notification.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	issuing bool
	cards   []VirtualCard
}

// NewService constructs a card orchestrator.
func NewService(session *wallet.Session, client settlement.CardClient, store history.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{session: session, client: client, store: store, notifier: notifier, logger: logger}
}

// CreateCard runs the pre-flight ladder, asks the issuing rail for a card, and
// appends it to the owned collection only on an accepted response.
func (s *Service) CreateCard(ctx context.Context, input CreateInput) (VirtualCard, error) {
	s.mu.Lock()

	if s.issuing {
		s.mu.Unlock()
		return VirtualCard{}, ErrRequestInFlight
	}

	snap := s.session.Snapshot()
	if snap.State != wallet.StateConnected {
		s.mu.Unlock()
		return VirtualCard{}, wallet.ErrNotConnected
	}
	if !snap.NetworkMatch {
		s.mu.Unlock()
		return VirtualCard{}, wallet.ErrWrongNetwork
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil || !amount.IsPositive() {
		s.mu.Unlock()
		return VirtualCard{}, ErrInvalidAmount
	}

	if input.Label == "" {
		s.mu.Unlock()
		return VirtualCard{}, ErrInvalidLabel
	}

	balance, err := decimal.NewFromString(snap.Balance)
	if err != nil {
		balance = decimal.Zero
	}
	if amount.GreaterThan(balance) {
		s.mu.Unlock()
		return VirtualCard{}, wallet.ErrInsufficientBalance
	}

	s.issuing = true
	s.mu.Unlock()

	decision, err := s.client.IssueCard(ctx, settlement.CardRequest{
		Label:  input.Label,
		Amount: amount.String(),
		Owner:  snap.Address,
	})

	s.mu.Lock()
	s.issuing = false
	s.mu.Unlock()

	if err != nil {
		return VirtualCard{}, fmt.Errorf("issue card: %w", err)
	}
	if !decision.Accepted {
		return VirtualCard{}, fmt.Errorf("%w: %s", settlement.ErrRejected, decision.FailureReason)
	}

	card := VirtualCard{
		ID:           uuid.NewString(),
		Label:        input.Label,
		Last4:        decision.Card.Last4,
		ExpMonth:     decision.Card.ExpMonth,
		ExpYear:      decision.Card.ExpYear,
		FundedAmount: amount.String(),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.cards = append(s.cards, card)
	s.mu.Unlock()

	if err := s.session.RefreshBalance(ctx); err != nil {
		s.logger.Warn("balance refresh after card issuance", "card_id", card.ID, "error", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindCardIssued,
			Destination: snap.Address,
			Body:        fmt.Sprintf("Issued card %q funded with %s USDC", card.Label, card.FundedAmount),
		})
	}

	if s.store != nil {
		entry := history.Entry{
			ID:        card.ID,
			Kind:      history.KindCardIssuance,
			Address:   snap.Address,
			Amount:    card.FundedAmount,
			Recipient: card.Label,
			Reference: decision.Reference,
			Status:    string(settlement.StatusSucceeded),
			CreatedAt: card.CreatedAt,
		}
		if err := s.store.Record(ctx, entry); err != nil {
			s.logger.Warn("record card history", "card_id", card.ID, "error", err)
		}
	}

	return card, nil
}

// SetCardActive persists the desired active flag with the provider and flips
// the local flag only after the round-trip succeeds, so the UI never shows a
// state the provider did not accept.
func (s *Service) SetCardActive(ctx context.Context, id string, active bool) (VirtualCard, error) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return VirtualCard{}, ErrCardNotFound
	}
	s.mu.Unlock()

	if err := s.client.SetCardActive(ctx, id, active); err != nil {
		return VirtualCard{}, fmt.Errorf("toggle card: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx = s.indexLocked(id)
	if idx < 0 {
		return VirtualCard{}, ErrCardNotFound
	}
	s.cards[idx].Active = active
	return s.cards[idx], nil
}

// Cards returns a snapshot copy of the owned card collection.
func (s *Service) Cards() []VirtualCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]VirtualCard(nil), s.cards...)
}

func (s *Service) indexLocked(id string) int {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return i
		}
	}
	return -1
}
