//go:build integration

package recorder_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"escrowd/internal/recorder"
	"escrowd/pkg/domain"
	"escrowd/pkg/testutil/containers"
)

type PostgresRecordSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *recorder.PostgresStore
	ctx      context.Context
}

func TestPostgresRecordSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRecordSuite))
}

func (s *PostgresRecordSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = recorder.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresRecordSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "escrow_transactions"))
}

func (s *PostgresRecordSuite) newRecord(account domain.AccountID, amount uint64, recordType recorder.RecordType, at time.Time) recorder.Record {
	return recorder.Record{
		ID:         uuid.New(),
		Account:    account,
		Amount:     amount,
		Type:       recordType,
		RecordedAt: at,
	}
}

// TestAppendAndListByAccount verifies records round-trip with the full uint64
// amount range intact.
func (s *PostgresRecordSuite) TestAppendAndListByAccount() {
	account := domain.NewAccountID()
	other := domain.NewAccountID()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(s.ctx, s.newRecord(account, 100, recorder.TypeDeposit, base)))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord(account, ^uint64(0), recorder.TypeAllocation, base.Add(time.Second))))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord(other, 50, recorder.TypeWithdrawal, base.Add(2*time.Second))))

	records, err := s.store.ListByAccount(s.ctx, account)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(recorder.TypeDeposit, records[0].Type)
	s.Equal(uint64(100), records[0].Amount)
	s.Equal(recorder.TypeAllocation, records[1].Type)
	s.Equal(^uint64(0), records[1].Amount, "max uint64 must survive the NUMERIC round trip")
	s.Equal(account, records[0].Account)
}

// TestAppendIdempotence verifies replaying a record ID does not duplicate it.
func (s *PostgresRecordSuite) TestAppendIdempotence() {
	account := domain.NewAccountID()
	record := s.newRecord(account, 100, recorder.TypeDeposit, time.Now().UTC())

	s.Require().NoError(s.store.Append(s.ctx, record))
	s.Require().NoError(s.store.Append(s.ctx, record))

	records, err := s.store.ListByAccount(s.ctx, account)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *PostgresRecordSuite) TestListRecent() {
	account := domain.NewAccountID()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		record := s.newRecord(account, uint64(i+1), recorder.TypeDeposit, base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Append(s.ctx, record))
	}

	recent, err := s.store.ListRecent(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(recent, 3)
	s.Equal(uint64(5), recent[0].Amount, "newest first")
	s.Equal(uint64(4), recent[1].Amount)
	s.Equal(uint64(3), recent[2].Amount)
}
