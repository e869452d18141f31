package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"escrowd/internal/ledger/models"
	"escrowd/internal/ledger/store"
	"escrowd/internal/notify"
	"escrowd/internal/recorder"
	"escrowd/internal/vault"
	vaultmocks "escrowd/internal/vault/mocks"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/requestcontext"
	"escrowd/pkg/testutil"
)

// =============================================================================
// Ledger Service Test Suite
// =============================================================================
// Justification for unit tests: the service stitches the aggregate, store,
// and vault into one atomic operation and emits records and events only after
// commit. Tests verify that ordering: a failed precondition or a failed
// transfer must leave the books, the custody balance, the record book, and
// the event stream all untouched.

type LedgerServiceSuite struct {
	suite.Suite
	store      *store.InMemory
	vault      *vault.InMemory
	records    *recorder.InMemoryStore
	events     *notify.MemorySink
	service    *Service
	logger     *slog.Logger
	now        time.Time
	admin      domain.AccountID
	controller domain.AccountID
	alice      domain.AccountID
	bob        domain.AccountID
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.admin = domain.NewAccountID()
	s.controller = domain.NewAccountID()
	s.alice = domain.NewAccountID()
	s.bob = domain.NewAccountID()

	s.store = store.NewInMemory()
	ledger, err := models.New(s.admin, s.controller, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Init(context.Background(), ledger))

	s.vault = vault.NewInMemory()
	s.records = recorder.NewInMemoryStore()
	s.events = notify.NewMemorySink()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	s.service, err = New(s.store, s.vault,
		WithLogger(s.logger),
		WithRecorder(recorder.NewPublisher(s.records, recorder.WithLogger(s.logger))),
		WithNotifier(s.events),
	)
	s.Require().NoError(err)
}

func (s *LedgerServiceSuite) ctx(account domain.AccountID) context.Context {
	return testutil.ContextWithAccountAt(account, s.now)
}

// whitelist adds accounts as the controller and clears the event sink so
// tests only observe the events of the operation under test.
func (s *LedgerServiceSuite) whitelist(accounts ...domain.AccountID) {
	_, err := s.service.AddToWhitelist(s.ctx(s.controller), accounts)
	s.Require().NoError(err)
	s.events.Reset()
}

func (s *LedgerServiceSuite) deposit(amount uint64, beneficiaries ...domain.AccountID) *models.DepositResult {
	result, err := s.service.Deposit(s.ctx(s.controller), amount, beneficiaries)
	s.Require().NoError(err)
	return result
}

func (s *LedgerServiceSuite) eventsOfType(eventType notify.EventType) []notify.Event {
	var matched []notify.Event
	for _, event := range s.events.Events() {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func (s *LedgerServiceSuite) recordsFor(account domain.AccountID) []recorder.Record {
	records, err := s.records.ListByAccount(context.Background(), account)
	s.Require().NoError(err)
	return records
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *LedgerServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.vault)
		s.Error(err)
		s.Contains(err.Error(), "ledger store is required")
	})

	s.Run("nil vault returns error", func() {
		_, err := New(s.store, nil)
		s.Error(err)
		s.Contains(err.Error(), "vault is required")
	})

	s.Run("valid dependencies return configured service", func() {
		svc, err := New(s.store, s.vault, WithLogger(s.logger))
		s.NoError(err)
		s.NotNil(svc)
		s.Equal(s.logger, svc.logger)
	})
}

// =============================================================================
// Deposit Tests
// =============================================================================

func (s *LedgerServiceSuite) TestDeposit() {
	s.Run("missing caller identity is rejected", func() {
		_, err := s.service.Deposit(context.Background(), 100, []domain.AccountID{s.alice})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("non-controller deposit leaves every surface untouched", func() {
		s.whitelist(s.alice)

		_, err := s.service.Deposit(s.ctx(s.alice), 100, []domain.AccountID{s.alice})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		held, vaultErr := s.vault.Balance(context.Background())
		s.Require().NoError(vaultErr)
		s.Zero(held, "custody must not move on a rejected deposit")
		s.Empty(s.recordsFor(s.alice))
		s.Empty(s.events.Events())
	})

	s.Run("deposit distributes, records, and notifies", func() {
		s.whitelist(s.alice, s.bob)

		result := s.deposit(200, s.alice, s.bob)
		s.Equal(uint64(100), result.Share)

		held, err := s.vault.Balance(context.Background())
		s.Require().NoError(err)
		s.Equal(uint64(200), held)

		controllerRecords := s.recordsFor(s.controller)
		s.Require().Len(controllerRecords, 1)
		s.Equal(recorder.TypeDeposit, controllerRecords[0].Type)
		s.Equal(uint64(200), controllerRecords[0].Amount)

		aliceRecords := s.recordsFor(s.alice)
		s.Require().Len(aliceRecords, 1)
		s.Equal(recorder.TypeAllocation, aliceRecords[0].Type)
		s.Equal(uint64(100), aliceRecords[0].Amount)

		s.Len(s.eventsOfType(notify.EventFundsDeposited), 1)
		s.Len(s.eventsOfType(notify.EventFundsAllocated), 2)

		balance, err := s.service.Balance(s.ctx(s.controller))
		s.Require().NoError(err)
		s.True(balance.InSync)
	})
}

func (s *LedgerServiceSuite) TestDepositResplitsCumulativePool() {
	s.whitelist(s.alice, s.bob)
	s.deposit(100, s.alice, s.bob)

	result := s.deposit(100, s.alice)
	s.Equal(uint64(200), result.Share, "share is computed against the post-deposit total")

	allocation, err := s.service.Allocation(s.ctx(s.alice), s.alice)
	s.Require().NoError(err)
	s.Equal(uint64(200), allocation)

	allocation, err = s.service.Allocation(s.ctx(s.bob), s.bob)
	s.Require().NoError(err)
	s.Equal(uint64(50), allocation, "unlisted beneficiary keeps the stale share")
}

func (s *LedgerServiceSuite) TestDepositIntakeFailureDiscardsStagedBooks() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	mockVault := vaultmocks.NewMockVault(ctrl)
	mockVault.EXPECT().Deposit(gomock.Any(), uint64(100)).Return(errors.New("intake unavailable"))

	svc, err := New(s.store, mockVault, WithLogger(s.logger))
	s.Require().NoError(err)

	s.whitelist(s.alice)
	_, err = svc.Deposit(s.ctx(s.controller), 100, []domain.AccountID{s.alice})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	state, err := s.service.State(s.ctx(s.admin))
	s.Require().NoError(err)
	s.Zero(state.TotalFunds)
	s.Zero(state.AllocationOf(s.alice))
}

// =============================================================================
// Credit Tests
// =============================================================================

func (s *LedgerServiceSuite) TestCredit() {
	s.Run("zero credit is rejected", func() {
		err := s.service.Credit(s.ctx(s.alice), 0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("any authenticated caller can credit the pool", func() {
		s.Require().NoError(s.service.Credit(s.ctx(s.alice), 500))

		balance, err := s.service.Balance(s.ctx(s.alice))
		s.Require().NoError(err)
		s.Equal(uint64(500), balance.TotalFunds)
		s.Equal(uint64(500), balance.HeldBalance)
		s.True(balance.InSync)

		records := s.recordsFor(s.alice)
		s.Require().Len(records, 1)
		s.Equal(recorder.TypeDeposit, records[0].Type)

		s.Len(s.eventsOfType(notify.EventFundsDeposited), 1)
	})
}

// =============================================================================
// Custom Allocation Tests
// =============================================================================

func (s *LedgerServiceSuite) TestCustomAllocationValidation() {
	s.whitelist(s.alice, s.bob)
	s.deposit(100, s.alice, s.bob)
	s.events.Reset()

	s.Run("length mismatch is rejected", func() {
		_, err := s.service.CustomAllocation(s.ctx(s.controller), []uint64{100})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	s.Run("sum mismatch is rejected with no events", func() {
		_, err := s.service.CustomAllocation(s.ctx(s.controller), []uint64{60, 60})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		s.Contains(err.Error(), "invalid amount")
		s.Empty(s.events.Events())
	})
}

func (s *LedgerServiceSuite) TestCustomAllocationRecordsAssignments() {
	s.whitelist(s.alice, s.bob)
	s.deposit(100, s.alice, s.bob)
	s.events.Reset()

	result, err := s.service.CustomAllocation(s.ctx(s.controller), []uint64{70, 30})
	s.Require().NoError(err)
	s.Equal([]models.Assignment{
		{Account: s.alice, Amount: 70},
		{Account: s.bob, Amount: 30},
	}, result.Assignments)

	aliceRecords := s.recordsFor(s.alice)
	s.Require().Len(aliceRecords, 2, "allocation from deposit plus custom allocation")
	s.Equal(recorder.TypeCustomAllocation, aliceRecords[1].Type)
	s.Equal(uint64(70), aliceRecords[1].Amount)

	s.Len(s.eventsOfType(notify.EventFundsAllocated), 2)
}

// =============================================================================
// Withdrawal Tests
// =============================================================================

func (s *LedgerServiceSuite) TestWithdraw() {
	s.whitelist(s.alice, s.bob)
	s.deposit(200, s.alice, s.bob)
	s.events.Reset()

	result, err := s.service.Withdraw(s.ctx(s.alice))
	s.Require().NoError(err)
	s.Equal(uint64(100), result.Amount)
	s.Equal(uint64(100), s.vault.ReceivedBy(s.alice))

	allocation, err := s.service.Allocation(s.ctx(s.alice), s.alice)
	s.Require().NoError(err)
	s.Zero(allocation)

	allocation, err = s.service.Allocation(s.ctx(s.bob), s.bob)
	s.Require().NoError(err)
	s.Equal(uint64(100), allocation, "other allocations are untouched")

	records := s.recordsFor(s.alice)
	s.Require().Len(records, 2, "allocation from deposit plus withdrawal")
	s.Equal(recorder.TypeWithdrawal, records[1].Type)
	s.Equal(uint64(100), records[1].Amount)

	s.Len(s.eventsOfType(notify.EventFundsWithdrawn), 1)

	balance, err := s.service.Balance(s.ctx(s.alice))
	s.Require().NoError(err)
	s.Equal(uint64(100), balance.TotalFunds)
	s.True(balance.InSync)
}

func (s *LedgerServiceSuite) TestWithdrawEventCarriesClientMetadata() {
	s.whitelist(s.alice)
	s.deposit(100, s.alice)
	s.events.Reset()

	ctx := testutil.ContextWithAccountAt(s.alice, s.now)
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "escrowctl/1.0 Go-http-client", "escrowctl/1.0")

	_, err := s.service.Withdraw(ctx)
	s.Require().NoError(err)

	withdrawn := s.eventsOfType(notify.EventFundsWithdrawn)
	s.Require().Len(withdrawn, 1)
	s.Equal("203.0.113.9", withdrawn[0].Meta["client_ip"])
	s.Equal("escrowctl/1.0", withdrawn[0].Meta["device"])
}

func (s *LedgerServiceSuite) TestWithdrawBlacklistedCallerForbidden() {
	s.whitelist(s.alice)
	s.deposit(100, s.alice)
	s.Require().NoError(s.service.Blacklist(s.ctx(s.controller), s.alice))
	s.events.Reset()

	_, err := s.service.Withdraw(s.ctx(s.alice))
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Zero(s.vault.ReceivedBy(s.alice))
	s.Empty(s.events.Events())
}

func (s *LedgerServiceSuite) TestWithdrawZeroAllocationRejected() {
	s.whitelist(s.alice)

	_, err := s.service.Withdraw(s.ctx(s.alice))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}

func (s *LedgerServiceSuite) TestWithdrawPayoutFailureDiscardsStagedBooks() {
	s.whitelist(s.alice)
	s.deposit(100, s.alice)

	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	mockVault := vaultmocks.NewMockVault(ctrl)
	mockVault.EXPECT().Balance(gomock.Any()).Return(uint64(100), nil)
	mockVault.EXPECT().
		Transfer(gomock.Any(), s.alice, uint64(100)).
		Return(errors.New("payment rail unavailable"))

	svc, err := New(s.store, mockVault, WithLogger(s.logger))
	s.Require().NoError(err)

	_, err = svc.Withdraw(s.ctx(s.alice))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	allocation, err := s.service.Allocation(s.ctx(s.alice), s.alice)
	s.Require().NoError(err)
	s.Equal(uint64(100), allocation, "allocation must survive a failed payout")
}

// =============================================================================
// Recovery Tests
// =============================================================================

func (s *LedgerServiceSuite) TestRecover() {
	s.whitelist(s.alice, s.bob)
	s.deposit(200, s.alice, s.bob)
	s.Require().NoError(s.service.Blacklist(s.ctx(s.controller), s.alice))
	s.Require().NoError(s.service.Blacklist(s.ctx(s.controller), s.bob))
	s.events.Reset()

	result, err := s.service.Recover(s.ctx(s.controller), []domain.AccountID{s.alice, s.bob})
	s.Require().NoError(err)
	s.Equal(uint64(200), result.Total)
	s.Equal(uint64(200), s.vault.ReceivedBy(s.controller))

	aliceRecords := s.recordsFor(s.alice)
	s.Require().Len(aliceRecords, 2)
	s.Equal(recorder.TypeBlacklistRecovery, aliceRecords[1].Type)
	s.Equal(uint64(100), aliceRecords[1].Amount)

	s.Len(s.eventsOfType(notify.EventFundsRecovered), 2)

	balance, err := s.service.Balance(s.ctx(s.controller))
	s.Require().NoError(err)
	s.Zero(balance.TotalFunds)
	s.True(balance.InSync)
}

func (s *LedgerServiceSuite) TestRecoverRejectsNonBlacklistedEntry() {
	s.whitelist(s.alice, s.bob)
	s.deposit(200, s.alice, s.bob)
	s.Require().NoError(s.service.Blacklist(s.ctx(s.controller), s.alice))
	s.events.Reset()

	_, err := s.service.Recover(s.ctx(s.controller), []domain.AccountID{s.alice, s.bob})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Zero(s.vault.ReceivedBy(s.controller))
	s.Empty(s.events.Events())

	allocation, err := s.service.Allocation(s.ctx(s.controller), s.alice)
	s.Require().NoError(err)
	s.Equal(uint64(100), allocation, "nothing is recovered when any entry fails")
}

// =============================================================================
// Access Control Tests
// =============================================================================

func (s *LedgerServiceSuite) TestWhitelistManagement() {
	s.Run("whitelisting emits one event per newly added account", func() {
		added, err := s.service.AddToWhitelist(s.ctx(s.controller), []domain.AccountID{s.alice, s.bob})
		s.Require().NoError(err)
		s.Len(added, 2)
		s.Len(s.eventsOfType(notify.EventAccountWhitelisted), 2)

		s.events.Reset()
		added, err = s.service.AddToWhitelist(s.ctx(s.controller), []domain.AccountID{s.alice})
		s.Require().NoError(err)
		s.Empty(added)
		s.Empty(s.events.Events(), "re-adding emits nothing")
	})

	s.Run("delisting removes membership", func() {
		s.whitelist(s.alice)

		s.Require().NoError(s.service.RemoveFromWhitelist(s.ctx(s.controller), s.alice))

		status, err := s.service.Status(s.ctx(s.controller), s.alice)
		s.Require().NoError(err)
		s.False(status.Whitelisted)
	})

	s.Run("blacklisting emits an event and keeps whitelist membership", func() {
		s.whitelist(s.alice)

		s.Require().NoError(s.service.Blacklist(s.ctx(s.controller), s.alice))
		s.Len(s.eventsOfType(notify.EventAccountBlacklisted), 1)

		status, err := s.service.Status(s.ctx(s.controller), s.alice)
		s.Require().NoError(err)
		s.True(status.Whitelisted)
		s.True(status.Blacklisted)
	})
}

func (s *LedgerServiceSuite) TestRoleTransfers() {
	s.Run("controller cannot reassign roles", func() {
		err := s.service.TransferFundController(s.ctx(s.controller), s.alice)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Empty(s.events.Events())
	})

	s.Run("administrator reassigns the controller", func() {
		s.Require().NoError(s.service.TransferFundController(s.ctx(s.admin), s.alice))
		s.Len(s.eventsOfType(notify.EventControllerTransferred), 1)

		_, err := s.service.AddToWhitelist(s.ctx(s.alice), []domain.AccountID{s.bob})
		s.NoError(err, "new controller holds the role")
	})

	s.Run("administrator hands its own role over", func() {
		s.events.Reset()
		s.Require().NoError(s.service.TransferAdministrator(s.ctx(s.admin), s.bob))
		s.Len(s.eventsOfType(notify.EventAdminTransferred), 1)

		// The new administrator can read the full state; the old cannot.
		_, err := s.service.State(s.ctx(s.bob))
		s.NoError(err)
		_, err = s.service.State(s.ctx(s.admin))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Query Tests
// =============================================================================

func (s *LedgerServiceSuite) TestQueries() {
	s.whitelist(s.alice, s.bob)
	s.deposit(200, s.alice, s.bob)

	s.Run("allocation is readable by owner and overseers only", func() {
		allocation, err := s.service.Allocation(s.ctx(s.alice), s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(100), allocation)

		_, err = s.service.Allocation(s.ctx(s.bob), s.alice)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		allocation, err = s.service.Allocation(s.ctx(s.controller), s.alice)
		s.Require().NoError(err)
		s.Equal(uint64(100), allocation)
	})

	s.Run("state is overseer only", func() {
		_, err := s.service.State(s.ctx(s.alice))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		state, err := s.service.State(s.ctx(s.admin))
		s.Require().NoError(err)
		s.Equal(s.controller, state.FundController)
	})

	s.Run("beneficiaries read their own records only", func() {
		records, err := s.service.Records(s.ctx(s.alice), s.alice, 0)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal(recorder.TypeAllocation, records[0].Type)

		_, err = s.service.Records(s.ctx(s.alice), s.bob, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("overseers read recent records across accounts", func() {
		records, err := s.service.Records(s.ctx(s.controller), domain.NilAccount, 10)
		s.Require().NoError(err)
		s.Len(records, 3, "one deposit and two allocations")
	})
}

// =============================================================================
// Reconciliation Tests
// =============================================================================

// TestBooksStayInSync runs a representative flow and checks the pooled total
// matches custody after every step.
func (s *LedgerServiceSuite) TestBooksStayInSync() {
	s.whitelist(s.alice, s.bob)

	assertInSync := func() {
		s.T().Helper()
		balance, err := s.service.Balance(s.ctx(s.controller))
		s.Require().NoError(err)
		s.True(balance.InSync, "books %d custody %d", balance.TotalFunds, balance.HeldBalance)
	}

	s.deposit(1000, s.alice, s.bob)
	assertInSync()

	s.Require().NoError(s.service.Credit(s.ctx(s.bob), 500))
	assertInSync()

	_, err := s.service.CustomAllocation(s.ctx(s.controller), []uint64{900, 600})
	s.Require().NoError(err)
	assertInSync()

	_, err = s.service.Withdraw(s.ctx(s.alice))
	s.Require().NoError(err)
	assertInSync()

	s.Require().NoError(s.service.Blacklist(s.ctx(s.controller), s.bob))
	_, err = s.service.Recover(s.ctx(s.controller), []domain.AccountID{s.bob})
	s.Require().NoError(err)
	assertInSync()
}
