package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"escrowd/internal/ledger/models"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/sentinel"
)

type LevelDBStoreSuite struct {
	suite.Suite
	store      *LevelDB
	path       string
	ctx        context.Context
	now        time.Time
	admin      domain.AccountID
	controller domain.AccountID
}

func TestLevelDBStoreSuite(t *testing.T) {
	suite.Run(t, new(LevelDBStoreSuite))
}

func (s *LevelDBStoreSuite) SetupTest() {
	s.path = s.T().TempDir()

	var err error
	s.store, err = OpenLevelDB(s.path)
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.admin = domain.NewAccountID()
	s.controller = domain.NewAccountID()
}

func (s *LevelDBStoreSuite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

func (s *LevelDBStoreSuite) seed() {
	ledger, err := models.New(s.admin, s.controller, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Init(s.ctx, ledger))
}

func (s *LevelDBStoreSuite) TestExecute() {
	s.Run("execute before init fails", func() {
		_, err := s.store.Execute(s.ctx, func(*models.Ledger) error { return nil })
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("commits the callback's mutations", func() {
		s.seed()

		committed, err := s.store.Execute(s.ctx, func(l *models.Ledger) error {
			return l.Credit(250, s.now)
		})
		s.Require().NoError(err)
		s.Equal(uint64(250), committed.TotalFunds)

		current, err := s.store.View(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(250), current.TotalFunds)
	})

	s.Run("a failing callback leaves state untouched", func() {
		s.seed()

		opErr := errors.New("transfer failed")
		_, err := s.store.Execute(s.ctx, func(l *models.Ledger) error {
			if creditErr := l.Credit(250, s.now); creditErr != nil {
				return creditErr
			}
			return opErr
		})
		s.Require().ErrorIs(err, opErr)

		current, viewErr := s.store.View(s.ctx)
		s.Require().NoError(viewErr)
		s.Zero(current.TotalFunds)
	})
}

// TestReopenPersistence verifies committed state survives a close and reopen,
// and that Init on the reopened database does not reset it.
func (s *LevelDBStoreSuite) TestReopenPersistence() {
	s.seed()

	beneficiary := domain.NewAccountID()
	_, err := s.store.Execute(s.ctx, func(l *models.Ledger) error {
		if _, addErr := l.AddToWhitelist(s.controller, []domain.AccountID{beneficiary}, s.now); addErr != nil {
			return addErr
		}
		_, depErr := l.Deposit(s.controller, 1000, []domain.AccountID{beneficiary}, s.now)
		return depErr
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Close())

	reopened, err := OpenLevelDB(s.path)
	s.Require().NoError(err)
	s.store = reopened

	seed, err := models.New(s.admin, s.controller, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Init(s.ctx, seed))

	current, err := s.store.View(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1000), current.TotalFunds)
	s.Equal(uint64(1000), current.AllocationOf(beneficiary))
	s.True(current.IsWhitelisted(beneficiary))
	s.Equal(s.controller, current.FundController)
}
