// Package handler exposes the escrow ledger over HTTP. Handlers decode and
// validate the wire form, delegate to the service (which owns every role
// check), and translate results back into JSON envelopes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"escrowd/internal/ledger/models"
	"escrowd/internal/ledger/service"
	"escrowd/internal/recorder"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// Service defines the ledger operations the HTTP layer exposes.
type Service interface {
	Deposit(ctx context.Context, amount uint64, beneficiaries []domain.AccountID) (*models.DepositResult, error)
	Credit(ctx context.Context, amount uint64) error
	CustomAllocation(ctx context.Context, amounts []uint64) (*models.AllocationResult, error)
	Withdraw(ctx context.Context) (*models.WithdrawResult, error)
	Recover(ctx context.Context, accounts []domain.AccountID) (*models.RecoveryResult, error)
	AddToWhitelist(ctx context.Context, accounts []domain.AccountID) ([]domain.AccountID, error)
	RemoveFromWhitelist(ctx context.Context, account domain.AccountID) error
	Blacklist(ctx context.Context, account domain.AccountID) error
	TransferAdministrator(ctx context.Context, newAdmin domain.AccountID) error
	TransferFundController(ctx context.Context, newController domain.AccountID) error
	Balance(ctx context.Context) (*service.BalanceResult, error)
	Status(ctx context.Context, account domain.AccountID) (models.AccountStatus, error)
	Allocation(ctx context.Context, account domain.AccountID) (uint64, error)
	State(ctx context.Context) (*models.Ledger, error)
	Records(ctx context.Context, account domain.AccountID, limit int) ([]recorder.Record, error)
}

// Handler wires ledger endpoints to the ledger service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a ledger handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the authenticated ledger endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ledger/deposits", h.HandleDeposit)
	r.Post("/ledger/credits", h.HandleCredit)
	r.Post("/ledger/allocations", h.HandleCustomAllocation)
	r.Post("/ledger/withdrawals", h.HandleWithdraw)
	r.Post("/ledger/recoveries", h.HandleRecover)
	r.Get("/ledger/balance", h.HandleBalance)
	r.Get("/ledger/state", h.HandleState)
	r.Get("/ledger/allocations/{account}", h.HandleAllocation)
	r.Get("/ledger/records", h.HandleRecords)

	r.Post("/access/whitelist", h.HandleWhitelist)
	r.Delete("/access/whitelist/{account}", h.HandleDelist)
	r.Post("/access/blacklist", h.HandleBlacklist)
	r.Get("/access/status/{account}", h.HandleStatus)

	r.Post("/admin/administrator", h.HandleTransferAdministrator)
	r.Post("/admin/controller", h.HandleTransferController)
}

// HandleDeposit handles POST /ledger/deposits requests.
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[DepositRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Deposit(ctx, req.Amount, req.ParsedBeneficiaries())
	if err != nil {
		h.logger.ErrorContext(ctx, "deposit failed",
			"request_id", requestID,
			"amount", req.Amount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "deposit accepted",
		"request_id", requestID,
		"amount", result.Amount,
		"share", result.Share,
		"allocated", len(result.Allocated),
		"skipped", len(result.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromDepositResult(result))
}

// HandleCredit handles POST /ledger/credits requests.
func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Credit(ctx, req.Amount); err != nil {
		h.logger.ErrorContext(ctx, "credit failed",
			"request_id", requestID,
			"amount", req.Amount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credit accepted",
		"request_id", requestID,
		"amount", req.Amount,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleCustomAllocation handles POST /ledger/allocations requests.
func (h *Handler) HandleCustomAllocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CustomAllocationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.CustomAllocation(ctx, req.Amounts)
	if err != nil {
		h.logger.ErrorContext(ctx, "custom allocation failed",
			"request_id", requestID,
			"entries", len(req.Amounts),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "custom allocation accepted",
		"request_id", requestID,
		"entries", len(result.Assignments),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, &CustomAllocationResponse{
		Assignments: fromAssignments(result.Assignments),
	})
}

// HandleWithdraw handles POST /ledger/withdrawals requests. The caller is
// the beneficiary; there is no request body.
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	result, err := h.service.Withdraw(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "withdrawal failed",
			"request_id", requestID,
			"account", requestcontext.AccountID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "withdrawal accepted",
		"request_id", requestID,
		"account", requestcontext.AccountID(ctx),
		"amount", result.Amount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, &WithdrawResponse{Amount: result.Amount})
}

// HandleRecover handles POST /ledger/recoveries requests.
func (h *Handler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RecoverRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Recover(ctx, req.ParsedBeneficiaries())
	if err != nil {
		h.logger.ErrorContext(ctx, "recovery failed",
			"request_id", requestID,
			"accounts", len(req.Beneficiaries),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "recovery accepted",
		"request_id", requestID,
		"total", result.Total,
		"accounts", len(result.Recovered),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, &RecoveryResponse{
		Total:     result.Total,
		Recovered: fromAssignments(result.Recovered),
	})
}
