package faucet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pesa-bridge/pesa_bridge/internal/notification"
	"github.com/pesa-bridge/pesa_bridge/internal/wallet"
)

// ErrInvalidAmount occurs when the requested drip amount does not parse as a
// positive decimal.
var ErrInvalidAmount = errors.New("invalid faucet amount")

// maxDripAmount caps a single testnet drip.
var maxDripAmount = decimal.NewFromInt(100)

// DripResult describes a completed faucet request.
type DripResult struct {
	Address   string
	Amount    string
	Reference string
}

// Service hands out simulated testnet USDC to the connected wallet. The drip
// itself is a stand-in for an external faucet; the balance refresh afterwards
// is real.
type Service struct {
	session  *wallet.Session
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a faucet service.
func NewService(session *wallet.Session, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{session: session, notifier: notifier, logger: logger}
}

// Drip requests testnet funds for the connected wallet and refreshes the
// observed balance.
func (s *Service) Drip(ctx context.Context, amount string) (DripResult, error) {
	snap := s.session.Snapshot()
	if snap.State != wallet.StateConnected {
		return DripResult{}, wallet.ErrNotConnected
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil || !amt.IsPositive() || amt.GreaterThan(maxDripAmount) {
		return DripResult{}, ErrInvalidAmount
	}

	result := DripResult{
		Address:   snap.Address,
		Amount:    amt.String(),
		Reference: uuid.NewString(),
	}

	s.logger.Info("faucet drip", "address", result.Address, "amount", result.Amount)

	if err := s.session.RefreshBalance(ctx); err != nil {
		s.logger.Warn("balance refresh after drip", "address", result.Address, "error", err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindFaucetDrip,
			Destination: result.Address,
			Body:        fmt.Sprintf("Dripped %s testnet USDC", result.Amount),
		})
	}

	return result, nil
}
