package service

import (
	"context"
	"time"

	"escrowd/internal/ledger/models"
	"escrowd/internal/notify"
	"escrowd/internal/recorder"
	"escrowd/pkg/domain"
	"escrowd/pkg/requestcontext"
)

// Deposit pools funds and distributes the post-deposit total equally among
// the eligible listed beneficiaries. Fund controller only.
func (s *Service) Deposit(ctx context.Context, amount uint64, beneficiaries []domain.AccountID) (*models.DepositResult, error) {
	ctx, span := startSpan(ctx, "ledger.deposit")
	defer span.End()
	defer s.metrics.ObserveDuration("deposit", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "deposit", err)
	}
	now := requestcontext.Now(ctx)

	var result *models.DepositResult
	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		var opErr error
		result, opErr = ledger.Deposit(actor, amount, beneficiaries, now)
		if opErr != nil {
			return opErr
		}
		// Custody moves last so a failed intake discards the staged books.
		if vaultErr := s.vault.Deposit(ctx, amount); vaultErr != nil {
			return wrapTransfer(vaultErr)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, "deposit", err)
	}

	s.record(ctx, recorder.Record{Account: actor, Amount: amount, Type: recorder.TypeDeposit, RecordedAt: now})
	s.notify(ctx, notify.Event{Type: notify.EventFundsDeposited, Account: actor, Actor: actor, Amount: amount, At: now})
	for _, beneficiary := range result.Allocated {
		s.record(ctx, recorder.Record{Account: beneficiary, Amount: result.Share, Type: recorder.TypeAllocation, RecordedAt: now})
		s.notify(ctx, notify.Event{Type: notify.EventFundsAllocated, Account: beneficiary, Actor: actor, Amount: result.Share, At: now})
	}

	s.metrics.IncrementDeposits()
	s.metrics.IncrementAllocations()
	s.updateStateGauges(committed)

	s.logger.InfoContext(ctx, "deposit committed",
		"request_id", requestcontext.RequestID(ctx),
		"amount", amount,
		"share", result.Share,
		"allocated", len(result.Allocated),
		"skipped", len(result.Skipped),
		"total_funds", committed.TotalFunds,
	)
	return result, nil
}

// Credit books an unsolicited transfer into the pool without distribution.
// Any authenticated caller.
func (s *Service) Credit(ctx context.Context, amount uint64) error {
	ctx, span := startSpan(ctx, "ledger.credit")
	defer span.End()
	defer s.metrics.ObserveDuration("credit", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return s.reject(ctx, span, "credit", err)
	}
	now := requestcontext.Now(ctx)

	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		if opErr := ledger.Credit(amount, now); opErr != nil {
			return opErr
		}
		if vaultErr := s.vault.Deposit(ctx, amount); vaultErr != nil {
			return wrapTransfer(vaultErr)
		}
		return nil
	})
	if err != nil {
		return s.reject(ctx, span, "credit", err)
	}

	s.record(ctx, recorder.Record{Account: actor, Amount: amount, Type: recorder.TypeDeposit, RecordedAt: now})
	s.notify(ctx, notify.Event{Type: notify.EventFundsDeposited, Account: actor, Actor: actor, Amount: amount, At: now})

	s.metrics.IncrementDeposits()
	s.updateStateGauges(committed)

	s.logger.InfoContext(ctx, "credit committed",
		"request_id", requestcontext.RequestID(ctx),
		"amount", amount,
		"total_funds", committed.TotalFunds,
	)
	return nil
}

// CustomAllocation replaces every whitelisted account's allocation with the
// given amounts, positional by whitelist insertion order. Fund controller
// only; amounts must sum to the pooled total exactly.
func (s *Service) CustomAllocation(ctx context.Context, amounts []uint64) (*models.AllocationResult, error) {
	ctx, span := startSpan(ctx, "ledger.custom_allocation")
	defer span.End()
	defer s.metrics.ObserveDuration("custom_allocation", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "custom_allocation", err)
	}
	now := requestcontext.Now(ctx)

	var result *models.AllocationResult
	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		var opErr error
		result, opErr = ledger.CustomAllocation(actor, amounts, now)
		return opErr
	})
	if err != nil {
		return nil, s.reject(ctx, span, "custom_allocation", err)
	}

	for _, assignment := range result.Assignments {
		s.record(ctx, recorder.Record{Account: assignment.Account, Amount: assignment.Amount, Type: recorder.TypeCustomAllocation, RecordedAt: now})
		s.notify(ctx, notify.Event{Type: notify.EventFundsAllocated, Account: assignment.Account, Actor: actor, Amount: assignment.Amount, At: now})
	}

	s.metrics.IncrementAllocations()
	s.updateStateGauges(committed)

	s.logger.InfoContext(ctx, "custom allocation committed",
		"request_id", requestcontext.RequestID(ctx),
		"accounts", len(result.Assignments),
		"total_funds", committed.TotalFunds,
	)
	return result, nil
}

// Withdraw pays out the caller's entire allocation.
func (s *Service) Withdraw(ctx context.Context) (*models.WithdrawResult, error) {
	ctx, span := startSpan(ctx, "ledger.withdraw")
	defer span.End()
	defer s.metrics.ObserveDuration("withdraw", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "withdraw", err)
	}
	now := requestcontext.Now(ctx)

	var result *models.WithdrawResult
	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		held, balErr := s.vault.Balance(ctx)
		if balErr != nil {
			return wrapTransfer(balErr)
		}
		var opErr error
		result, opErr = ledger.Withdraw(actor, held, now)
		if opErr != nil {
			return opErr
		}
		// Payout is the terminal step: if the transfer fails, the staged
		// zeroing of the allocation is discarded and the books stand.
		if trErr := s.vault.Transfer(ctx, actor, result.Amount); trErr != nil {
			return wrapTransfer(trErr)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, "withdraw", err)
	}

	s.record(ctx, recorder.Record{Account: actor, Amount: result.Amount, Type: recorder.TypeWithdrawal, RecordedAt: now})
	s.notify(ctx, notify.Event{
		Type:    notify.EventFundsWithdrawn,
		Account: actor,
		Actor:   actor,
		Amount:  result.Amount,
		At:      now,
		Meta:    withdrawalMeta(ctx),
	})

	s.metrics.IncrementWithdrawals()
	s.updateStateGauges(committed)

	s.logger.InfoContext(ctx, "withdrawal committed",
		"request_id", requestcontext.RequestID(ctx),
		"amount", result.Amount,
		"total_funds", committed.TotalFunds,
	)
	return result, nil
}

// withdrawalMeta carries client metadata into payout events for audit.
func withdrawalMeta(ctx context.Context) map[string]string {
	meta := make(map[string]string, 2)
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		meta["client_ip"] = ip
	}
	if device := requestcontext.Device(ctx); device != "" {
		meta["device"] = device
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// Recover claws back the allocations of the given blacklisted accounts and
// pays the combined total to the fund controller. Fund controller only.
func (s *Service) Recover(ctx context.Context, accounts []domain.AccountID) (*models.RecoveryResult, error) {
	ctx, span := startSpan(ctx, "ledger.recover")
	defer span.End()
	defer s.metrics.ObserveDuration("recover", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "recover", err)
	}
	now := requestcontext.Now(ctx)

	var result *models.RecoveryResult
	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		var opErr error
		result, opErr = ledger.RecoverBlacklistedFunds(actor, accounts, now)
		if opErr != nil {
			return opErr
		}
		if trErr := s.vault.Transfer(ctx, actor, result.Total); trErr != nil {
			return wrapTransfer(trErr)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, span, "recover", err)
	}

	for _, recovered := range result.Recovered {
		s.record(ctx, recorder.Record{Account: recovered.Account, Amount: recovered.Amount, Type: recorder.TypeBlacklistRecovery, RecordedAt: now})
		s.notify(ctx, notify.Event{Type: notify.EventFundsRecovered, Account: recovered.Account, Actor: actor, Amount: recovered.Amount, At: now})
	}

	s.metrics.IncrementRecoveries()
	s.updateStateGauges(committed)

	s.logger.InfoContext(ctx, "blacklist recovery committed",
		"request_id", requestcontext.RequestID(ctx),
		"accounts", len(result.Recovered),
		"total", result.Total,
		"total_funds", committed.TotalFunds,
	)
	return result, nil
}

// AddToWhitelist registers the accounts as beneficiaries. Fund controller
// only; the whole call fails if any identity is null.
func (s *Service) AddToWhitelist(ctx context.Context, accounts []domain.AccountID) ([]domain.AccountID, error) {
	ctx, span := startSpan(ctx, "ledger.whitelist_add")
	defer span.End()
	defer s.metrics.ObserveDuration("whitelist_add", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return nil, s.reject(ctx, span, "whitelist_add", err)
	}
	now := requestcontext.Now(ctx)

	var added []domain.AccountID
	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		var opErr error
		added, opErr = ledger.AddToWhitelist(actor, accounts, now)
		return opErr
	})
	if err != nil {
		return nil, s.reject(ctx, span, "whitelist_add", err)
	}

	for _, account := range added {
		s.notify(ctx, notify.Event{Type: notify.EventAccountWhitelisted, Account: account, Actor: actor, At: now})
	}
	s.updateStateGauges(committed)

	s.logger.InfoContext(ctx, "whitelist updated",
		"request_id", requestcontext.RequestID(ctx),
		"requested", len(accounts),
		"added", len(added),
	)
	return added, nil
}

// RemoveFromWhitelist delists one beneficiary. Fund controller only.
func (s *Service) RemoveFromWhitelist(ctx context.Context, account domain.AccountID) error {
	ctx, span := startSpan(ctx, "ledger.whitelist_remove")
	defer span.End()
	defer s.metrics.ObserveDuration("whitelist_remove", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return s.reject(ctx, span, "whitelist_remove", err)
	}
	now := requestcontext.Now(ctx)

	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		return ledger.RemoveFromWhitelist(actor, account, now)
	})
	if err != nil {
		return s.reject(ctx, span, "whitelist_remove", err)
	}

	s.updateStateGauges(committed)
	s.logger.InfoContext(ctx, "account delisted",
		"request_id", requestcontext.RequestID(ctx),
		"account", account.String(),
	)
	return nil
}

// Blacklist flags a whitelisted account. Fund controller only.
func (s *Service) Blacklist(ctx context.Context, account domain.AccountID) error {
	ctx, span := startSpan(ctx, "ledger.blacklist")
	defer span.End()
	defer s.metrics.ObserveDuration("blacklist", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return s.reject(ctx, span, "blacklist", err)
	}
	now := requestcontext.Now(ctx)

	committed, err := s.store.Execute(ctx, func(ledger *models.Ledger) error {
		return ledger.AddToBlacklist(actor, account, now)
	})
	if err != nil {
		return s.reject(ctx, span, "blacklist", err)
	}

	s.notify(ctx, notify.Event{Type: notify.EventAccountBlacklisted, Account: account, Actor: actor, At: now})
	s.updateStateGauges(committed)

	s.logger.InfoContext(ctx, "account blacklisted",
		"request_id", requestcontext.RequestID(ctx),
		"account", account.String(),
	)
	return nil
}

// TransferAdministrator reassigns the administrator role. Administrator only.
func (s *Service) TransferAdministrator(ctx context.Context, newAdmin domain.AccountID) error {
	ctx, span := startSpan(ctx, "ledger.transfer_admin")
	defer span.End()
	defer s.metrics.ObserveDuration("transfer_admin", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return s.reject(ctx, span, "transfer_admin", err)
	}
	now := requestcontext.Now(ctx)

	_, err = s.store.Execute(ctx, func(ledger *models.Ledger) error {
		return ledger.TransferAdministrator(actor, newAdmin, now)
	})
	if err != nil {
		return s.reject(ctx, span, "transfer_admin", err)
	}

	s.notify(ctx, notify.Event{Type: notify.EventAdminTransferred, Account: newAdmin, Actor: actor, At: now})

	s.logger.InfoContext(ctx, "administrator transferred",
		"request_id", requestcontext.RequestID(ctx),
		"new_administrator", newAdmin.String(),
	)
	return nil
}

// TransferFundController reassigns the fund controller role. Administrator
// only.
func (s *Service) TransferFundController(ctx context.Context, newController domain.AccountID) error {
	ctx, span := startSpan(ctx, "ledger.transfer_controller")
	defer span.End()
	defer s.metrics.ObserveDuration("transfer_controller", time.Now())

	actor, err := caller(ctx)
	if err != nil {
		return s.reject(ctx, span, "transfer_controller", err)
	}
	now := requestcontext.Now(ctx)

	_, err = s.store.Execute(ctx, func(ledger *models.Ledger) error {
		return ledger.TransferFundController(actor, newController, now)
	})
	if err != nil {
		return s.reject(ctx, span, "transfer_controller", err)
	}

	s.notify(ctx, notify.Event{Type: notify.EventControllerTransferred, Account: newController, Actor: actor, At: now})

	s.logger.InfoContext(ctx, "fund controller transferred",
		"request_id", requestcontext.RequestID(ctx),
		"new_controller", newController.String(),
	)
	return nil
}
