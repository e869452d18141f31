package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"escrowd/pkg/domain"
)

// Amounts are NUMERIC(20,0) rather than BIGINT so the full uint64 range
// survives the round trip.
const createRecordsTableSQL = `
CREATE TABLE IF NOT EXISTS escrow_transactions (
	id          UUID PRIMARY KEY,
	account_id  UUID NOT NULL,
	amount      NUMERIC(20,0) NOT NULL,
	record_type TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS escrow_transactions_account_idx
	ON escrow_transactions (account_id, recorded_at)`

// PostgresStore persists the transaction book in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the transaction table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRecordsTableSQL); err != nil {
		return fmt.Errorf("create escrow_transactions table: %w", err)
	}
	return nil
}

// Append inserts the record. Replays of the same record ID are ignored so the
// publisher can retry safely.
func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO escrow_transactions (id, account_id, amount, record_type, recorded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		record.ID,
		uuid.UUID(record.Account),
		strconv.FormatUint(record.Amount, 10),
		string(record.Type),
		record.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, account domain.AccountID) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, amount::text, record_type, recorded_at
		 FROM escrow_transactions
		 WHERE account_id = $1
		 ORDER BY recorded_at, id`,
		uuid.UUID(account),
	)
	if err != nil {
		return nil, fmt.Errorf("query records by account: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, amount::text, record_type, recorded_at
		 FROM escrow_transactions
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var (
			record    Record
			accountID uuid.UUID
			amount    string
		)
		if err := rows.Scan(&record.ID, &accountID, &amount, &record.Type, &record.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan transaction record: %w", err)
		}

		parsed, err := strconv.ParseUint(amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse record amount %q: %w", amount, err)
		}
		record.Account = domain.AccountID(accountID)
		record.Amount = parsed
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction records: %w", err)
	}
	return records, nil
}
