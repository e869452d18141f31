package store

import (
	"context"

	"escrowd/internal/ledger/models"
)

// Store persists the singleton escrow ledger. Implementations are
// interface-driven so the service layer can swap in-memory, embedded, or
// external persistence without rewiring business code.
//
// Execute runs op against the current ledger inside one exclusive critical
// section. The callback mutates a staged copy (or a row locked for the
// duration of the transaction); if op returns an error, nothing is persisted
// and the error is returned unchanged. On success the committed ledger is
// returned. Concurrent Execute calls are serialized.
type Store interface {
	// Init seeds the ledger if none exists yet. Calling Init against an
	// already-initialized store is a no-op, so restarts are safe.
	Init(ctx context.Context, seed *models.Ledger) error

	// Execute applies op atomically and returns the committed state.
	Execute(ctx context.Context, op func(*models.Ledger) error) (*models.Ledger, error)

	// View returns a read-only snapshot of the current ledger. Callers may
	// inspect but must not retain expectations of freshness beyond the call.
	View(ctx context.Context) (*models.Ledger, error)
}
