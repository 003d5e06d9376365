package history

import (
	"context"
	"strings"
	"sync"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemory creates a concurrency-safe in-memory history store useful for
// development and unit tests.
func NewInMemory() Store {
	return &inMemoryStore{}
}

func (s *inMemoryStore) Record(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Newest first.
	s.entries = append([]Entry{entry}, s.entries...)
	return nil
}

func (s *inMemoryStore) List(_ context.Context, address string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	address = strings.ToLower(address)
	var out []Entry
	for _, e := range s.entries {
		if address != "" && e.Address != address {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
