package service

import (
	"context"
	"time"

	"escrowd/internal/ledger/models"
	"escrowd/internal/recorder"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

// BalanceResult reconciles the books against custody. InSync is false when
// the pooled total diverges from the held balance, which warrants an
// operator's attention.
type BalanceResult struct {
	TotalFunds  uint64
	HeldBalance uint64
	InSync      bool
}

// Balance reports the pooled total and the custody balance side by side.
func (s *Service) Balance(ctx context.Context) (*BalanceResult, error) {
	ctx, span := startSpan(ctx, "ledger.balance")
	defer span.End()

	if _, err := caller(ctx); err != nil {
		return nil, s.reject(ctx, span, "balance", err)
	}

	ledger, err := s.store.View(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "balance", err)
	}

	held, err := s.vault.Balance(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "balance", wrapTransfer(err))
	}

	return &BalanceResult{
		TotalFunds:  ledger.TotalFunds,
		HeldBalance: held,
		InSync:      ledger.TotalFunds == held,
	}, nil
}

// Status reports an account's whitelist and blacklist membership.
func (s *Service) Status(ctx context.Context, account domain.AccountID) (models.AccountStatus, error) {
	ctx, span := startSpan(ctx, "ledger.status")
	defer span.End()

	if _, err := caller(ctx); err != nil {
		return models.AccountStatus{}, s.reject(ctx, span, "status", err)
	}

	ledger, err := s.store.View(ctx)
	if err != nil {
		return models.AccountStatus{}, s.reject(ctx, span, "status", err)
	}
	return ledger.Status(account), nil
}

// Allocation reports an account's current allocation. Beneficiaries may read
// their own; the administrator and fund controller may read any.
func (s *Service) Allocation(ctx context.Context, account domain.AccountID) (uint64, error) {
	ctx, span := startSpan(ctx, "ledger.allocation")
	defer span.End()

	actor, err := caller(ctx)
	if err != nil {
		return 0, s.reject(ctx, span, "allocation", err)
	}

	ledger, err := s.store.View(ctx)
	if err != nil {
		return 0, s.reject(ctx, span, "allocation", err)
	}

	if actor != account && !isOverseer(ledger, actor) {
		err := dErrors.New(dErrors.CodeUnauthorized, "cannot read another account's allocation")
		return 0, s.reject(ctx, span, "allocation", err)
	}
	return ledger.AllocationOf(account), nil
}

// State returns the full ledger snapshot. Administrator and fund controller
// only.
func (s *Service) State(ctx context.Context) (*models.Ledger, error) {
	ctx, span := startSpan(ctx, "ledger.state")
	defer span.End()

	actor, err := caller(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "state", err)
	}

	ledger, err := s.store.View(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "state", err)
	}

	if !isOverseer(ledger, actor) {
		err := dErrors.New(dErrors.CodeUnauthorized, "caller may not read the full ledger state")
		return nil, s.reject(ctx, span, "state", err)
	}
	return ledger, nil
}

// Records lists transaction records. Beneficiaries see their own history;
// the administrator and fund controller may query any account or, with the
// null account, the most recent records overall.
func (s *Service) Records(ctx context.Context, account domain.AccountID, limit int) ([]recorder.Record, error) {
	ctx, span := startSpan(ctx, "ledger.records")
	defer span.End()
	defer s.metrics.ObserveDuration("records", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "records", err)
	}

	if s.recorder == nil {
		return nil, s.reject(ctx, span, "records",
			dErrors.New(dErrors.CodeInternal, "transaction records are not enabled"))
	}

	ledger, err := s.store.View(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "records", err)
	}

	if !isOverseer(ledger, actor) {
		if !account.IsZero() && account != actor {
			err := dErrors.New(dErrors.CodeUnauthorized, "cannot read another account's records")
			return nil, s.reject(ctx, span, "records", err)
		}
		return s.recorder.ListByAccount(ctx, actor)
	}

	if account.IsZero() {
		return s.recorder.ListRecent(ctx, limit)
	}
	return s.recorder.ListByAccount(ctx, account)
}

// IsController reports whether the account currently holds the fund
// controller role. The token service consults it before allowing credential
// registration.
func (s *Service) IsController(ctx context.Context, account domain.AccountID) (bool, error) {
	ledger, err := s.store.View(ctx)
	if err != nil {
		return false, err
	}
	return account == ledger.FundController, nil
}

func isOverseer(ledger *models.Ledger, account domain.AccountID) bool {
	return account == ledger.Administrator || account == ledger.FundController
}
