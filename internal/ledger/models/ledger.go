// Package models holds the escrow ledger aggregate: pooled funds contributed
// by the fund controller, per-beneficiary allocations, and the
// whitelist/blacklist access control gating who may receive or withdraw.
//
// All mutating methods are atomic: they validate every precondition before
// touching state, so a returned error guarantees the aggregate is unchanged.
// The store layer serializes operations; the aggregate itself is not safe for
// concurrent mutation.
package models

import (
	"time"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

// Ledger is the authoritative escrow state.
//
// Invariants:
//   - Administrator and FundController are never the null identity.
//   - Blacklisting never alters whitelist membership, and delisting never
//     clears the blacklist flag; the two lists move independently once an
//     account is on both.
//   - sum(Allocations) never exceeds TotalFunds under documented operation;
//     Withdraw re-checks held balance before paying out.
//   - TotalFunds increases only on deposit/credit and decreases only on
//     withdrawal or recovery, by exactly the amount moved.
type Ledger struct {
	Administrator  domain.AccountID            `json:"administrator"`
	FundController domain.AccountID            `json:"fund_controller"`
	Whitelist      AccountSet                  `json:"whitelist"`
	Blacklist      map[domain.AccountID]bool   `json:"blacklist"`
	Allocations    map[domain.AccountID]uint64 `json:"allocations"`
	TotalFunds     uint64                      `json:"total_funds"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// AccountStatus is the queryable whitelist/blacklist state of one account.
type AccountStatus struct {
	Whitelisted bool
	Blacklisted bool
}

// Assignment pairs an account with an amount for allocation and recovery
// results.
type Assignment struct {
	Account domain.AccountID
	Amount  uint64
}

// DepositResult reports what a deposit changed.
type DepositResult struct {
	Amount uint64
	// Share is the post-deposit equal share: TotalFunds / len(beneficiaries),
	// floor division. The remainder stays unallocated.
	Share     uint64
	Allocated []domain.AccountID
	// Skipped lists beneficiaries left untouched: not whitelisted or
	// blacklisted at distribution time.
	Skipped []domain.AccountID
}

// AllocationResult reports the full positional assignment of a custom
// allocation, in whitelist insertion order.
type AllocationResult struct {
	Assignments []Assignment
}

// WithdrawResult reports the amount paid out to the caller.
type WithdrawResult struct {
	Amount uint64
}

// RecoveryResult reports the allocations pulled back from blacklisted
// beneficiaries.
type RecoveryResult struct {
	Total     uint64
	Recovered []Assignment
}

// New constructs a ledger with its two bootstrap roles.
func New(administrator, fundController domain.AccountID, now time.Time) (*Ledger, error) {
	if administrator.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "administrator must not be the null identity")
	}
	if fundController.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "fund controller must not be the null identity")
	}
	return &Ledger{
		Administrator:  administrator,
		FundController: fundController,
		Blacklist:      make(map[domain.AccountID]bool),
		Allocations:    make(map[domain.AccountID]uint64),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ---------------------------------------------------------------------------
// Role checks
// ---------------------------------------------------------------------------

func (l *Ledger) requireAdministrator(caller domain.AccountID) error {
	if caller != l.Administrator {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrator")
	}
	return nil
}

func (l *Ledger) requireController(caller domain.AccountID) error {
	if caller != l.FundController {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the fund controller")
	}
	return nil
}

// TransferAdministrator reassigns the administrator role. Administrator-only.
func (l *Ledger) TransferAdministrator(caller, newAdmin domain.AccountID, now time.Time) error {
	if err := l.requireAdministrator(caller); err != nil {
		return err
	}
	if newAdmin.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "new administrator must not be the null identity")
	}
	l.Administrator = newAdmin
	l.UpdatedAt = now
	return nil
}

// TransferFundController reassigns the fund controller role.
// Administrator-only.
func (l *Ledger) TransferFundController(caller, newController domain.AccountID, now time.Time) error {
	if err := l.requireAdministrator(caller); err != nil {
		return err
	}
	if newController.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "new fund controller must not be the null identity")
	}
	l.FundController = newController
	l.UpdatedAt = now
	return nil
}

// ---------------------------------------------------------------------------
// Access control
// ---------------------------------------------------------------------------

// AddToWhitelist marks the given accounts as whitelisted. Controller-only.
// Already-whitelisted accounts are silently skipped; a null identity anywhere
// in the list fails the whole call before any state changes. Returns the
// accounts that were actually added.
func (l *Ledger) AddToWhitelist(caller domain.AccountID, accounts []domain.AccountID, now time.Time) ([]domain.AccountID, error) {
	if err := l.requireController(caller); err != nil {
		return nil, err
	}
	for _, account := range accounts {
		if account.IsZero() {
			return nil, dErrors.New(dErrors.CodeInvalidArgument, "whitelist account must not be the null identity")
		}
	}

	added := make([]domain.AccountID, 0, len(accounts))
	for _, account := range accounts {
		if l.Whitelist.Add(account) {
			added = append(added, account)
		}
	}
	if len(added) > 0 {
		l.UpdatedAt = now
	}
	return added, nil
}

// RemoveFromWhitelist clears an account's whitelist membership.
// Controller-only. The ordered whitelist uses swap-with-last removal, so the
// order of remaining entries is unspecified afterwards.
func (l *Ledger) RemoveFromWhitelist(caller, account domain.AccountID, now time.Time) error {
	if err := l.requireController(caller); err != nil {
		return err
	}
	if !l.Whitelist.Remove(account) {
		return dErrors.New(dErrors.CodeNotFound, "account is not whitelisted")
	}
	l.UpdatedAt = now
	return nil
}

// AddToBlacklist marks a whitelisted account as blacklisted. Controller-only.
// Whitelist membership is untouched: the account stays listed but loses
// withdrawal and equal-distribution eligibility. The null identity is
// rejected first since it can never be whitelisted.
func (l *Ledger) AddToBlacklist(caller, account domain.AccountID, now time.Time) error {
	if err := l.requireController(caller); err != nil {
		return err
	}
	if account.IsZero() {
		return dErrors.New(dErrors.CodeInvalidArgument, "blacklist account must not be the null identity")
	}
	if !l.Whitelist.Contains(account) {
		return dErrors.New(dErrors.CodeNotFound, "account is not whitelisted")
	}
	if l.Blacklist == nil {
		l.Blacklist = make(map[domain.AccountID]bool)
	}
	l.Blacklist[account] = true
	l.UpdatedAt = now
	return nil
}

// IsWhitelisted reports whitelist membership. Pure query.
func (l *Ledger) IsWhitelisted(account domain.AccountID) bool {
	return l.Whitelist.Contains(account)
}

// IsBlacklisted reports blacklist membership. Pure query.
func (l *Ledger) IsBlacklisted(account domain.AccountID) bool {
	return l.Blacklist[account]
}

// Status returns the whitelist/blacklist state of an account. Pure query.
func (l *Ledger) Status(account domain.AccountID) AccountStatus {
	return AccountStatus{
		Whitelisted: l.IsWhitelisted(account),
		Blacklisted: l.IsBlacklisted(account),
	}
}

// ---------------------------------------------------------------------------
// Funds
// ---------------------------------------------------------------------------

// Deposit adds funds and distributes equal shares among the listed
// beneficiaries. Controller-only.
//
// The share is computed against the POST-deposit cumulative total, not just
// the new amount: depositing again with a shorter beneficiary list re-splits
// previously allocated funds. That re-split is documented behavior and must
// not be "fixed" here. Floor division leaves any remainder permanently
// unallocated. Beneficiaries that are not whitelisted, or are blacklisted,
// are silently skipped and keep their prior allocation.
func (l *Ledger) Deposit(caller domain.AccountID, amount uint64, beneficiaries []domain.AccountID, now time.Time) (*DepositResult, error) {
	if err := l.requireController(caller); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "deposit amount must be greater than zero")
	}
	if len(beneficiaries) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "beneficiary list must not be empty")
	}
	if l.TotalFunds+amount < l.TotalFunds {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "deposit overflows total funds")
	}

	l.TotalFunds += amount
	share := l.TotalFunds / uint64(len(beneficiaries))

	result := &DepositResult{Amount: amount, Share: share}
	for _, beneficiary := range beneficiaries {
		if !l.Whitelist.Contains(beneficiary) || l.Blacklist[beneficiary] {
			result.Skipped = append(result.Skipped, beneficiary)
			continue
		}
		l.setAllocation(beneficiary, share)
		result.Allocated = append(result.Allocated, beneficiary)
	}
	l.UpdatedAt = now
	return result, nil
}

// Credit adds funds with no distribution: value arriving without a
// beneficiary list is accepted and simply raises the pool.
func (l *Ledger) Credit(amount uint64, now time.Time) error {
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "credit amount must be greater than zero")
	}
	if l.TotalFunds+amount < l.TotalFunds {
		return dErrors.New(dErrors.CodeInvalidArgument, "credit overflows total funds")
	}
	l.TotalFunds += amount
	l.UpdatedAt = now
	return nil
}

// CustomAllocation overwrites every allocation positionally: amounts[i] goes
// to the i-th whitelisted account in insertion order. Controller-only.
//
// Blacklist status is ignored here: a blacklisted account CAN receive a
// custom allocation, it just cannot withdraw it (recovery pulls it back).
// The amounts must sum to exactly TotalFunds.
func (l *Ledger) CustomAllocation(caller domain.AccountID, amounts []uint64, now time.Time) (*AllocationResult, error) {
	if err := l.requireController(caller); err != nil {
		return nil, err
	}
	if len(amounts) != l.Whitelist.Len() {
		return nil, dErrors.Newf(dErrors.CodeInvalidArgument,
			"amounts length %d does not match whitelist length %d", len(amounts), l.Whitelist.Len())
	}

	var sum uint64
	for _, amount := range amounts {
		if sum+amount < sum {
			return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid amount")
		}
		sum += amount
	}
	if sum != l.TotalFunds {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "invalid amount")
	}

	result := &AllocationResult{Assignments: make([]Assignment, 0, len(amounts))}
	for i, amount := range amounts {
		account := l.Whitelist.At(i)
		l.setAllocation(account, amount)
		result.Assignments = append(result.Assignments, Assignment{Account: account, Amount: amount})
	}
	l.UpdatedAt = now
	return result, nil
}

// Withdraw pays out the caller's full allocation. The caller must not be
// blacklisted and must have a non-zero allocation. heldBalance is the
// vault-held balance; it falling below the allocation means the books have
// diverged and the operation must not pay out.
//
// Bookkeeping is zeroed before the external transfer happens
// (checks-effects-interactions): the store discards this mutation if the
// transfer fails.
func (l *Ledger) Withdraw(caller domain.AccountID, heldBalance uint64, now time.Time) (*WithdrawResult, error) {
	if l.Blacklist[caller] {
		return nil, dErrors.New(dErrors.CodeForbidden, "account is blacklisted")
	}
	allocation := l.Allocations[caller]
	if allocation == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "no allocation to withdraw")
	}
	if heldBalance < allocation {
		return nil, dErrors.New(dErrors.CodeInsufficientFunds, "held balance below allocation")
	}

	delete(l.Allocations, caller)
	l.TotalFunds -= allocation
	l.UpdatedAt = now
	return &WithdrawResult{Amount: allocation}, nil
}

// RecoverBlacklistedFunds pulls the allocations of the listed blacklisted
// beneficiaries back to the fund controller. Controller-only. Every listed
// account must be blacklisted; a zero recovery total means there was nothing
// to recover and fails the call.
func (l *Ledger) RecoverBlacklistedFunds(caller domain.AccountID, beneficiaries []domain.AccountID, now time.Time) (*RecoveryResult, error) {
	if err := l.requireController(caller); err != nil {
		return nil, err
	}

	var total uint64
	seen := make(map[domain.AccountID]bool, len(beneficiaries))
	ordered := make([]domain.AccountID, 0, len(beneficiaries))
	for _, beneficiary := range beneficiaries {
		if !l.Blacklist[beneficiary] {
			return nil, dErrors.New(dErrors.CodeNotFound, "account is not blacklisted")
		}
		if seen[beneficiary] {
			continue
		}
		seen[beneficiary] = true
		ordered = append(ordered, beneficiary)
		total += l.Allocations[beneficiary]
	}
	if total == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "nothing to recover")
	}

	result := &RecoveryResult{Total: total}
	for _, beneficiary := range ordered {
		if amount := l.Allocations[beneficiary]; amount > 0 {
			result.Recovered = append(result.Recovered, Assignment{Account: beneficiary, Amount: amount})
			delete(l.Allocations, beneficiary)
		}
	}
	l.TotalFunds -= total
	l.UpdatedAt = now
	return result, nil
}

// ---------------------------------------------------------------------------
// Queries and helpers
// ---------------------------------------------------------------------------

// AllocationOf returns the amount currently owed to an account. Pure query.
func (l *Ledger) AllocationOf(account domain.AccountID) uint64 {
	return l.Allocations[account]
}

// AllocationSum totals all outstanding allocations.
func (l *Ledger) AllocationSum() uint64 {
	var sum uint64
	for _, amount := range l.Allocations {
		sum += amount
	}
	return sum
}

// setAllocation stores a beneficiary's allocation, normalizing zero to
// absence so withdrawn and never-allocated accounts look the same.
func (l *Ledger) setAllocation(account domain.AccountID, amount uint64) {
	if l.Allocations == nil {
		l.Allocations = make(map[domain.AccountID]uint64)
	}
	if amount == 0 {
		delete(l.Allocations, account)
		return
	}
	l.Allocations[account] = amount
}

// Clone returns a deep copy for staged mutation.
func (l *Ledger) Clone() *Ledger {
	cloned := &Ledger{
		Administrator:  l.Administrator,
		FundController: l.FundController,
		Whitelist:      l.Whitelist.Clone(),
		Blacklist:      make(map[domain.AccountID]bool, len(l.Blacklist)),
		Allocations:    make(map[domain.AccountID]uint64, len(l.Allocations)),
		TotalFunds:     l.TotalFunds,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
	for account, flagged := range l.Blacklist {
		cloned.Blacklist[account] = flagged
	}
	for account, amount := range l.Allocations {
		cloned.Allocations[account] = amount
	}
	return cloned
}
