package handler

import (
	"net/http"
	"strconv"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/platform/httputil"
)

// defaultRecordLimit caps unfiltered record listings.
const defaultRecordLimit = 50

// HandleBalance handles GET /ledger/balance requests.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.Balance(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBalanceResult(result))
}

// HandleState handles GET /ledger/state requests.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ledger, err := h.service.State(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromLedger(ledger))
}

// HandleAllocation handles GET /ledger/allocations/{account} requests.
func (h *Handler) HandleAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}

	allocation, err := h.service.Allocation(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.service.Status(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &AllocationResponse{
		Account:     account,
		Allocation:  allocation,
		Whitelisted: status.Whitelisted,
		Blacklisted: status.Blacklisted,
	})
}

// HandleRecords handles GET /ledger/records requests. The account query
// parameter filters to one account; without it overseers get the most recent
// records across the ledger, capped by limit.
func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account := domain.NilAccount
	if raw := r.URL.Query().Get("account"); raw != "" {
		parsed, err := domain.ParseAccountID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		account = parsed
	}

	limit := defaultRecordLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	records, err := h.service.Records(ctx, account, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(records))
}
