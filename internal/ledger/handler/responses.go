package handler

import (
	"sort"
	"time"

	"escrowd/internal/ledger/models"
	"escrowd/internal/ledger/service"
	"escrowd/internal/recorder"
	"escrowd/pkg/domain"
)

func sortAccounts(accounts []domain.AccountID) {
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].String() < accounts[j].String()
	})
}

// DepositResponse is the HTTP response for POST /ledger/deposits.
type DepositResponse struct {
	Amount    uint64             `json:"amount"`
	Share     uint64             `json:"share"`
	Allocated []domain.AccountID `json:"allocated"`
	Skipped   []domain.AccountID `json:"skipped,omitempty"`
}

// FromDepositResult converts a domain DepositResult to an HTTP response.
func FromDepositResult(result *models.DepositResult) *DepositResponse {
	return &DepositResponse{
		Amount:    result.Amount,
		Share:     result.Share,
		Allocated: result.Allocated,
		Skipped:   result.Skipped,
	}
}

// AssignmentResponse is one account/amount pair in allocation and recovery
// responses.
type AssignmentResponse struct {
	Account domain.AccountID `json:"account"`
	Amount  uint64           `json:"amount"`
}

func fromAssignments(assignments []models.Assignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, AssignmentResponse{Account: a.Account, Amount: a.Amount})
	}
	return out
}

// CustomAllocationResponse is the HTTP response for POST /ledger/allocations.
type CustomAllocationResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
}

// WithdrawResponse is the HTTP response for POST /ledger/withdrawals.
type WithdrawResponse struct {
	Amount uint64 `json:"amount"`
}

// RecoveryResponse is the HTTP response for POST /ledger/recoveries.
type RecoveryResponse struct {
	Total     uint64               `json:"total"`
	Recovered []AssignmentResponse `json:"recovered"`
}

// BalanceResponse is the HTTP response for GET /ledger/balance.
type BalanceResponse struct {
	TotalFunds  uint64 `json:"total_funds"`
	HeldBalance uint64 `json:"held_balance"`
	InSync      bool   `json:"in_sync"`
}

// FromBalanceResult converts a BalanceResult to an HTTP response.
func FromBalanceResult(result *service.BalanceResult) *BalanceResponse {
	return &BalanceResponse{
		TotalFunds:  result.TotalFunds,
		HeldBalance: result.HeldBalance,
		InSync:      result.InSync,
	}
}

// AllocationResponse is the HTTP response for GET /ledger/allocations/{account}.
type AllocationResponse struct {
	Account     domain.AccountID `json:"account"`
	Allocation  uint64           `json:"allocation"`
	Whitelisted bool             `json:"whitelisted"`
	Blacklisted bool             `json:"blacklisted"`
}

// StatusResponse is the HTTP response for GET /access/status/{account}.
type StatusResponse struct {
	Whitelisted bool `json:"whitelisted"`
	Blacklisted bool `json:"blacklisted"`
}

// WhitelistResponse is the HTTP response for POST /access/whitelist.
// Added lists only the accounts that were not already whitelisted.
type WhitelistResponse struct {
	Added []domain.AccountID `json:"added"`
}

// StateResponse is the full aggregate view for GET /ledger/state.
type StateResponse struct {
	Administrator  domain.AccountID     `json:"administrator"`
	FundController domain.AccountID     `json:"fund_controller"`
	TotalFunds     uint64               `json:"total_funds"`
	Whitelist      []domain.AccountID   `json:"whitelist"`
	Blacklisted    []domain.AccountID   `json:"blacklisted"`
	Allocations    []AssignmentResponse `json:"allocations"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// FromLedger converts the aggregate to its full HTTP view. Entries follow
// whitelist insertion order; delisted accounts that still carry a blacklist
// flag or an allocation are appended in account order so the view stays
// deterministic.
func FromLedger(ledger *models.Ledger) *StateResponse {
	whitelist := ledger.Whitelist.Accounts()

	inWhitelist := make(map[domain.AccountID]bool, len(whitelist))
	blacklisted := make([]domain.AccountID, 0, len(ledger.Blacklist))
	allocations := make([]AssignmentResponse, 0, len(ledger.Allocations))
	for _, account := range whitelist {
		inWhitelist[account] = true
		if ledger.Blacklist[account] {
			blacklisted = append(blacklisted, account)
		}
		if amount, ok := ledger.Allocations[account]; ok {
			allocations = append(allocations, AssignmentResponse{Account: account, Amount: amount})
		}
	}

	var delistedFlagged []domain.AccountID
	for account, flagged := range ledger.Blacklist {
		if flagged && !inWhitelist[account] {
			delistedFlagged = append(delistedFlagged, account)
		}
	}
	sortAccounts(delistedFlagged)
	blacklisted = append(blacklisted, delistedFlagged...)

	var delistedFunded []domain.AccountID
	for account := range ledger.Allocations {
		if !inWhitelist[account] {
			delistedFunded = append(delistedFunded, account)
		}
	}
	sortAccounts(delistedFunded)
	for _, account := range delistedFunded {
		allocations = append(allocations, AssignmentResponse{Account: account, Amount: ledger.Allocations[account]})
	}

	return &StateResponse{
		Administrator:  ledger.Administrator,
		FundController: ledger.FundController,
		TotalFunds:     ledger.TotalFunds,
		Whitelist:      whitelist,
		Blacklisted:    blacklisted,
		Allocations:    allocations,
		UpdatedAt:      ledger.UpdatedAt,
	}
}

// RecordResponse is one transaction record in GET /ledger/records.
type RecordResponse struct {
	ID         string           `json:"id"`
	Account    domain.AccountID `json:"account"`
	Amount     uint64           `json:"amount"`
	Type       string           `json:"type"`
	RecordedAt time.Time        `json:"recorded_at"`
}

// RecordsResponse is the HTTP response for GET /ledger/records.
type RecordsResponse struct {
	Records []RecordResponse `json:"records"`
}

// FromRecords converts transaction records to their HTTP view.
func FromRecords(records []recorder.Record) *RecordsResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, RecordResponse{
			ID:         rec.ID.String(),
			Account:    rec.Account,
			Amount:     rec.Amount,
			Type:       string(rec.Type),
			RecordedAt: rec.RecordedAt,
		})
	}
	return &RecordsResponse{Records: out}
}
