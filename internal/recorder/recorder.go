package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"escrowd/pkg/domain"
)

// RecordType tags each entry in the transaction book.
type RecordType string

const (
	TypeDeposit           RecordType = "Deposit"
	TypeAllocation        RecordType = "Allocation"
	TypeCustomAllocation  RecordType = "CustomAllocation"
	TypeWithdrawal        RecordType = "Withdrawal"
	TypeBlacklistRecovery RecordType = "BlacklistRecovery"
)

// Record is one entry in the transaction book. Deposits and credits carry the
// fund controller (or sender) as the account; allocations, withdrawals, and
// recoveries carry the beneficiary.
type Record struct {
	ID         uuid.UUID        `json:"id"`
	Account    domain.AccountID `json:"account"`
	Amount     uint64           `json:"amount"`
	Type       RecordType       `json:"type"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// Appender is the write half of record persistence. Sinks that only forward
// records (message brokers, log shippers) implement just this.
type Appender interface {
	Append(ctx context.Context, record Record) error
}

// Store persists records and answers queries. It is append-only so history
// cannot be rewritten.
type Store interface {
	Appender
	ListByAccount(ctx context.Context, account domain.AccountID) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
