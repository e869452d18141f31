package vault

import (
	"context"
	"fmt"
	"sync"

	"escrowd/pkg/domain"
)

// InMemory holds custody balances in process memory. Suitable for tests and
// local development; a production deployment plugs in a payment rail behind
// the same interface.
type InMemory struct {
	mu       sync.Mutex
	balance  uint64
	received map[domain.AccountID]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{received: make(map[domain.AccountID]uint64)}
}

func (v *InMemory) Balance(_ context.Context) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

func (v *InMemory) Deposit(_ context.Context, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount > ^uint64(0)-v.balance {
		return fmt.Errorf("deposit of %d overflows custody balance", amount)
	}
	v.balance += amount
	return nil
}

func (v *InMemory) Transfer(_ context.Context, to domain.AccountID, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount > v.balance {
		return fmt.Errorf("transfer of %d with %d held: %w", amount, v.balance, ErrInsufficientFunds)
	}
	v.balance -= amount
	v.received[to] += amount
	return nil
}

// ReceivedBy reports the cumulative amount transferred to an account. Test
// helper; production vaults have no reason to expose this.
func (v *InMemory) ReceivedBy(account domain.AccountID) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.received[account]
}
