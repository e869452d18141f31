package token

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// Handler exposes token minting and credential registration over HTTP.
type Handler struct {
	service *Service
	ttl     int64
	logger  *slog.Logger
}

// NewHandler constructs the auth handler. expiresIn is the token lifetime
// reported to clients, in seconds.
func NewHandler(service *Service, expiresIn int64, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		ttl:     expiresIn,
		logger:  logger,
	}
}

// RegisterPublic mounts the endpoints that must work without a bearer token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/token", h.HandleToken)
}

// RegisterProtected mounts the endpoints that require authentication.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/credentials", h.HandleRegister)
}

// TokenRequest is the HTTP request body for POST /auth/token.
type TokenRequest struct {
	AccountID string `json:"account_id"`
	Secret    string `json:"secret"`

	parsedAccount domain.AccountID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *TokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "secret is required")
	}

	parsed, err := domain.ParseAccountID(r.AccountID)
	if err != nil {
		return err
	}
	r.parsedAccount = parsed
	return nil
}

// TokenResponse is the HTTP response for POST /auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// HandleToken handles POST /auth/token requests.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	signed, err := h.service.Token(ctx, req.parsedAccount, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "token request rejected",
			"request_id", requestID,
			"account", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   h.ttl,
	})
}

// RegisterRequest is the HTTP request body for POST /auth/credentials.
type RegisterRequest struct {
	AccountID string `json:"account_id"`

	parsedAccount domain.AccountID
}

func (r *RegisterRequest) Validate() error {
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

// RegisterResponse is the HTTP response for POST /auth/credentials. The
// secret is shown exactly once; only its hash is retained.
type RegisterResponse struct {
	AccountID domain.AccountID `json:"account_id"`
	Secret    string           `json:"secret"`
}

// HandleRegister handles POST /auth/credentials requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	secret, err := h.service.Register(ctx, req.parsedAccount)
	if err != nil {
		h.logger.ErrorContext(ctx, "credential registration failed",
			"request_id", requestID,
			"account", req.AccountID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential registered",
		"request_id", requestID,
		"account", req.AccountID,
	)
	httputil.WriteJSON(w, http.StatusCreated, &RegisterResponse{
		AccountID: req.parsedAccount,
		Secret:    secret,
	})
}
