package vault

import (
	"context"
	"errors"

	"escrowd/pkg/domain"
)

// ErrInsufficientFunds reports a release request exceeding held custody.
var ErrInsufficientFunds = errors.New("insufficient funds in custody")

// Vault custodies the physical funds backing the ledger's bookkeeping. The
// ledger tracks who is owed what; the vault holds and releases the money.
// Implementations must be safe for concurrent use.
//
// The service calls Transfer as the last step inside the ledger's critical
// section, so a failed release aborts the whole operation and the books never
// claim a payout that did not happen.
type Vault interface {
	// Balance reports the funds currently held in custody.
	Balance(ctx context.Context) (uint64, error)

	// Deposit takes newly received funds into custody.
	Deposit(ctx context.Context, amount uint64) error

	// Transfer releases amount from custody to the given account.
	Transfer(ctx context.Context, to domain.AccountID, amount uint64) error
}
