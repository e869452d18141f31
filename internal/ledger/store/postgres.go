package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"escrowd/internal/ledger/models"
	"escrowd/pkg/platform/sentinel"
)

// The ledger is a single aggregate, so it lives in a single row. SELECT ...
// FOR UPDATE gives us the exclusive critical section across processes without
// an external lock service.
const createLedgerTableSQL = `
CREATE TABLE IF NOT EXISTS escrow_ledger (
	id         SMALLINT PRIMARY KEY CHECK (id = 1),
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres persists the ledger as a single JSONB row.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the ledger table if it does not exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createLedgerTableSQL); err != nil {
		return fmt.Errorf("create escrow_ledger table: %w", err)
	}
	return nil
}

func (s *Postgres) Init(ctx context.Context, seed *models.Ledger) error {
	if seed == nil {
		return fmt.Errorf("init ledger: %w", sentinel.ErrInvalidState)
	}

	raw, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("marshal ledger seed: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO escrow_ledger (id, state) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
		raw,
	)
	if err != nil {
		return fmt.Errorf("seed ledger row: %w", err)
	}
	return nil
}

func (s *Postgres) Execute(ctx context.Context, op func(*models.Ledger) error) (*models.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT state FROM escrow_ledger WHERE id = 1 FOR UPDATE`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger not initialized: %w", sentinel.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("lock ledger row: %w", err)
	}

	var ledger models.Ledger
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, fmt.Errorf("unmarshal ledger state: %w", err)
	}

	if err := op(&ledger); err != nil {
		return nil, err
	}

	updated, err := json.Marshal(&ledger)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger state: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE escrow_ledger SET state = $1, updated_at = now() WHERE id = 1`,
		updated,
	); err != nil {
		return nil, fmt.Errorf("persist ledger state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}
	return &ledger, nil
}

func (s *Postgres) View(ctx context.Context) (*models.Ledger, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM escrow_ledger WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger not initialized: %w", sentinel.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger row: %w", err)
	}

	var ledger models.Ledger
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, fmt.Errorf("unmarshal ledger state: %w", err)
	}
	return &ledger, nil
}
