package settlement

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// StaticMobileMoney simulates a mobile-money rail that settles every payout
// synchronously. Used in development and tests when no rail URL is configured.
type StaticMobileMoney struct{}

// InitiateTransfer accepts the payout with a synthetic reference.
func (StaticMobileMoney) InitiateTransfer(_ context.Context, _ TransferRequest) (TransferDecision, error) {
	return TransferDecision{Accepted: true, Reference: uuid.NewString(), Status: StatusSucceeded}, nil
}

// PollStatus reports every known payout as settled.
func (StaticMobileMoney) PollStatus(_ context.Context, _ string) (Status, error) {
	return StatusSucceeded, nil
}

// StaticCardIssuer simulates a card-issuing rail that approves every issuance
// with generated card details.
type StaticCardIssuer struct{}

// IssueCard approves the issuance with synthetic card details.
func (StaticCardIssuer) IssueCard(_ context.Context, _ CardRequest) (CardDecision, error) {
	return CardDecision{
		Accepted: true,
		Card: CardDetails{
			Last4:    fmt.Sprintf("%04d", rand.Intn(10000)),
			ExpMonth: fmt.Sprintf("%02d", 1+rand.Intn(12)),
			ExpYear:  fmt.Sprintf("%d", 25+rand.Intn(5)),
		},
		Reference: uuid.NewString(),
	}, nil
}

// SetCardActive accepts every toggle.
func (StaticCardIssuer) SetCardActive(_ context.Context, _ string, _ bool) error {
	return nil
}

// PollStatus reports every known issuance as settled.
func (StaticCardIssuer) PollStatus(_ context.Context, _ string) (Status, error) {
	return StatusSucceeded, nil
}
