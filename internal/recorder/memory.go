package recorder

import (
	"context"
	"sync"

	"escrowd/pkg/domain"
)

// InMemoryStore keeps records in process memory, newest last. Suitable for
// tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, account domain.AccountID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Record
	for _, record := range s.records {
		if record.Account == account {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

// ListRecent returns up to limit records, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	recent := make([]Record, 0, limit)
	for i := len(s.records) - 1; i >= len(s.records)-limit; i-- {
		recent = append(recent, s.records[i])
	}
	return recent, nil
}
