package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"escrowd/pkg/domain"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// accountParam parses the {account} URL parameter, writing the error
// response itself on failure.
func (h *Handler) accountParam(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	account, err := domain.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.NilAccount, false
	}
	return account, true
}

// HandleWhitelist handles POST /access/whitelist requests.
func (h *Handler) HandleWhitelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[WhitelistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	added, err := h.service.AddToWhitelist(ctx, req.ParsedAccounts())
	if err != nil {
		h.logger.ErrorContext(ctx, "whitelisting failed",
			"request_id", requestID,
			"accounts", len(req.Accounts),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "accounts whitelisted",
		"request_id", requestID,
		"requested", len(req.Accounts),
		"added", len(added),
	)
	httputil.WriteJSON(w, http.StatusOK, &WhitelistResponse{Added: added})
}

// HandleDelist handles DELETE /access/whitelist/{account} requests.
func (h *Handler) HandleDelist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveFromWhitelist(ctx, account); err != nil {
		h.logger.ErrorContext(ctx, "delisting failed",
			"request_id", requestID,
			"account", account,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "account delisted",
		"request_id", requestID,
		"account", account,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleBlacklist handles POST /access/blacklist requests.
func (h *Handler) HandleBlacklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BlacklistRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Blacklist(ctx, req.ParsedAccount()); err != nil {
		h.logger.ErrorContext(ctx, "blacklisting failed",
			"request_id", requestID,
			"account", req.Account,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "account blacklisted",
		"request_id", requestID,
		"account", req.Account,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /access/status/{account} requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, ok := h.accountParam(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(ctx, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &StatusResponse{
		Whitelisted: status.Whitelisted,
		Blacklisted: status.Blacklisted,
	})
}

// HandleTransferAdministrator handles POST /admin/administrator requests.
func (h *Handler) HandleTransferAdministrator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TransferRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.TransferAdministrator(ctx, req.ParsedAccount()); err != nil {
		h.logger.ErrorContext(ctx, "administrator transfer failed",
			"request_id", requestID,
			"account", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "administrator transferred",
		"request_id", requestID,
		"account", req.AccountID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleTransferController handles POST /admin/controller requests.
func (h *Handler) HandleTransferController(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TransferRoleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.TransferFundController(ctx, req.ParsedAccount()); err != nil {
		h.logger.ErrorContext(ctx, "controller transfer failed",
			"request_id", requestID,
			"account", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "controller transferred",
		"request_id", requestID,
		"account", req.AccountID,
	)
	w.WriteHeader(http.StatusNoContent)
}
