package handler

import (
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

// parseAccounts converts the wire form of an account list, rejecting the
// first malformed entry.
func parseAccounts(raw []string) ([]domain.AccountID, error) {
	accounts := make([]domain.AccountID, 0, len(raw))
	for _, s := range raw {
		account, err := domain.ParseAccountID(s)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// DepositRequest is the HTTP request body for POST /ledger/deposits.
type DepositRequest struct {
	Amount        uint64   `json:"amount"`
	Beneficiaries []string `json:"beneficiaries"`

	// Parsed values (populated by Validate)
	parsedBeneficiaries []domain.AccountID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *DepositRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "amount must be greater than zero")
	}
	if len(r.Beneficiaries) == 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "at least one beneficiary is required")
	}

	parsed, err := parseAccounts(r.Beneficiaries)
	if err != nil {
		return err
	}
	r.parsedBeneficiaries = parsed
	return nil
}

// ParsedBeneficiaries returns the validated beneficiary identities.
func (r *DepositRequest) ParsedBeneficiaries() []domain.AccountID {
	return r.parsedBeneficiaries
}

// CreditRequest is the HTTP request body for POST /ledger/credits.
type CreditRequest struct {
	Amount uint64 `json:"amount"`
}

func (r *CreditRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "amount must be greater than zero")
	}
	return nil
}

// CustomAllocationRequest is the HTTP request body for POST /ledger/allocations.
// Amounts are positional: entry i is assigned to the i-th whitelisted account
// in insertion order.
type CustomAllocationRequest struct {
	Amounts []uint64 `json:"amounts"`
}

func (r *CustomAllocationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Amounts) == 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "at least one amount is required")
	}
	return nil
}

// RecoverRequest is the HTTP request body for POST /ledger/recoveries.
type RecoverRequest struct {
	Beneficiaries []string `json:"beneficiaries"`

	parsedBeneficiaries []domain.AccountID
}

func (r *RecoverRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Beneficiaries) == 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "at least one beneficiary is required")
	}

	parsed, err := parseAccounts(r.Beneficiaries)
	if err != nil {
		return err
	}
	r.parsedBeneficiaries = parsed
	return nil
}

func (r *RecoverRequest) ParsedBeneficiaries() []domain.AccountID {
	return r.parsedBeneficiaries
}

// WhitelistRequest is the HTTP request body for POST /access/whitelist.
type WhitelistRequest struct {
	Accounts []string `json:"accounts"`

	parsedAccounts []domain.AccountID
}

func (r *WhitelistRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Accounts) == 0 {
		return dErrors.New(dErrors.CodeInvalidArgument, "at least one account is required")
	}

	parsed, err := parseAccounts(r.Accounts)
	if err != nil {
		return err
	}
	r.parsedAccounts = parsed
	return nil
}

func (r *WhitelistRequest) ParsedAccounts() []domain.AccountID {
	return r.parsedAccounts
}

// BlacklistRequest is the HTTP request body for POST /access/blacklist.
type BlacklistRequest struct {
	Account string `json:"account"`

	parsedAccount domain.AccountID
}

func (r *BlacklistRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	parsed, err := domain.ParseAccountID(r.Account)
	if err != nil {
		return err
	}
	r.parsedAccount = parsed
	return nil
}

func (r *BlacklistRequest) ParsedAccount() domain.AccountID {
	return r.parsedAccount
}

// TransferRoleRequest is the HTTP request body for the role reassignment
// endpoints under /admin.
type TransferRoleRequest struct {
	AccountID string `json:"account_id"`

	parsedAccount domain.AccountID
}

func (r *TransferRoleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	parsed, err := domain.ParseAccountID(r.AccountID)
	if err != nil {
		return err
	}
	r.parsedAccount = parsed
	return nil
}

func (r *TransferRoleRequest) ParsedAccount() domain.AccountID {
	return r.parsedAccount
}
