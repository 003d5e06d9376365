package history

import (
	"context"
	"time"
)

const (
	// KindTransfer marks a mobile-money payout entry.
	KindTransfer = "transfer"
	// KindCardIssuance marks a virtual card issuance entry.
	KindCardIssuance = "card_issuance"
)

// Entry records a settlement request that reached a terminal status.
type Entry struct {
	ID        string
	Kind      string
	Address   string
	Amount    string
	Recipient string
	Reference string
	Status    string
	CreatedAt time.Time
}

// Store defines the contract implemented by history backends (e.g. Postgres).
type Store interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, address string, limit int) ([]Entry, error)
}
