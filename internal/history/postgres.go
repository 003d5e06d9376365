package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists settlement history in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record inserts a history entry.
func (s *PostgresStore) Record(ctx context.Context, entry Entry) error {
	_, err := s.db.Exec(ctx, `INSERT INTO settlement_history (id, kind, address, amount, recipient, reference, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.Kind, entry.Address, entry.Amount, entry.Recipient, entry.Reference, entry.Status, entry.CreatedAt.UTC())
	return err
}

// List fetches entries for an address, newest first.
func (s *PostgresStore) List(ctx context.Context, address string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `SELECT id, kind, address, amount, recipient, reference, status, created_at
        FROM settlement_history WHERE ($1 = '' OR address = $1) ORDER BY created_at DESC LIMIT $2`, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.Kind, &e.Address, &e.Amount, &e.Recipient, &e.Reference, &e.Status, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
