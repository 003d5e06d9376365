package settlement

import (
	"context"
	"errors"
)

// ErrRejected indicates the settlement provider declined a request. The
// provider's reason is surfaced verbatim and the request is not retried.
var ErrRejected = errors.New("settlement rejected")

// Status is the reconciliation state of a settlement request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// TransferRequest describes a mobile-money payout to initiate.
type TransferRequest struct {
	Amount   string
	Phone    string
	Provider string
	Country  string
}

// TransferDecision is the rail's immediate answer to a payout initiation.
// An accepted decision with StatusSucceeded means the rail settled
// synchronously; StatusPending means the caller must reconcile via PollStatus
// using the reference.
type TransferDecision struct {
	Accepted      bool
	Reference     string
	Status        Status
	FailureReason string
}

// MobileMoneyClient is the typed boundary to the mobile-money settlement rail.
// It never retries silently; retry policy belongs to the orchestrator.
type MobileMoneyClient interface {
	InitiateTransfer(ctx context.Context, req TransferRequest) (TransferDecision, error)
	PollStatus(ctx context.Context, reference string) (Status, error)
}

// CardRequest describes a virtual card issuance to initiate.
type CardRequest struct {
	Label  string
	Amount string
	Owner  string
}

// CardDetails carries the card data returned by the issuing rail.
type CardDetails struct {
	Last4    string
	ExpMonth string
	ExpYear  string
}

// CardDecision is the issuing rail's answer to a card issuance.
type CardDecision struct {
	Accepted      bool
	Card          CardDetails
	Reference     string
	FailureReason string
}

// CardClient is the typed boundary to the card-issuing settlement rail.
type CardClient interface {
	IssueCard(ctx context.Context, req CardRequest) (CardDecision, error)
	SetCardActive(ctx context.Context, cardID string, active bool) error
	PollStatus(ctx context.Context, reference string) (Status, error)
}
