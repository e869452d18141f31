package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"

	"escrowd/internal/ledger/models"
	"escrowd/pkg/platform/sentinel"
)

var ledgerKey = []byte("ledger/state")

// LevelDB persists the ledger under a single key in an embedded database.
// A single escrowd process owns the database directory, so an in-process
// mutex is sufficient for the critical section.
type LevelDB struct {
	mu sync.Mutex
	db *leveldb.DB
}

func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

func (s *LevelDB) Init(_ context.Context, seed *models.Ledger) error {
	if seed == nil {
		return fmt.Errorf("init ledger: %w", sentinel.ErrInvalidState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	has, err := s.db.Has(ledgerKey, nil)
	if err != nil {
		return fmt.Errorf("check ledger key: %w", err)
	}
	if has {
		return nil
	}

	raw, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("marshal ledger seed: %w", err)
	}
	if err := s.db.Put(ledgerKey, raw, nil); err != nil {
		return fmt.Errorf("seed ledger key: %w", err)
	}
	return nil
}

func (s *LevelDB) Execute(_ context.Context, op func(*models.Ledger) error) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load()
	if err != nil {
		return nil, err
	}

	if err := op(ledger); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(ledger)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger state: %w", err)
	}
	if err := s.db.Put(ledgerKey, raw, nil); err != nil {
		return nil, fmt.Errorf("persist ledger state: %w", err)
	}
	return ledger, nil
}

func (s *LevelDB) View(_ context.Context) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *LevelDB) Close() error {
	return s.db.Close()
}

func (s *LevelDB) load() (*models.Ledger, error) {
	raw, err := s.db.Get(ledgerKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("ledger not initialized: %w", sentinel.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger key: %w", err)
	}

	var ledger models.Ledger
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return nil, fmt.Errorf("unmarshal ledger state: %w", err)
	}
	return &ledger, nil
}
