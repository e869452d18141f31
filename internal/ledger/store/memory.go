package store

import (
	"context"
	"fmt"
	"sync"

	"escrowd/internal/ledger/models"
	"escrowd/pkg/platform/sentinel"
)

// InMemory keeps the ledger in process memory. Suitable for tests and local
// development; state is lost on restart.
type InMemory struct {
	mu     sync.Mutex
	ledger *models.Ledger
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Init(_ context.Context, seed *models.Ledger) error {
	if seed == nil {
		return fmt.Errorf("init ledger: %w", sentinel.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger != nil {
		return nil
	}
	s.ledger = seed.Clone()
	return nil
}

// Execute stages op on a deep copy so a failing callback leaves the committed
// state untouched.
func (s *InMemory) Execute(_ context.Context, op func(*models.Ledger) error) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return nil, fmt.Errorf("ledger not initialized: %w", sentinel.ErrInvalidState)
	}

	staged := s.ledger.Clone()
	if err := op(staged); err != nil {
		return nil, err
	}

	s.ledger = staged
	return staged.Clone(), nil
}

func (s *InMemory) View(_ context.Context) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ledger == nil {
		return nil, fmt.Errorf("ledger not initialized: %w", sentinel.ErrInvalidState)
	}
	return s.ledger.Clone(), nil
}
