// Package httputil writes JSON responses and maps domain errors onto HTTP
// statuses. Handlers never hand-roll response envelopes.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "escrowd/pkg/domain-errors"
)

// errorResponse is the wire envelope for every failed request.
// error_description is omitted for internal failures so infrastructure
// details never leak to clients.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// statusFor maps domain error codes to HTTP statuses. Unknown codes are
// treated as internal failures.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeInvalidArgument, dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeInsufficientFunds:
		// Held balance diverging from the books is an accounting failure,
		// not a client mistake.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates err into the standard error envelope. Domain errors
// carry their own code and message; anything else is an opaque internal error.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	if code == "" {
		code = dErrors.CodeInternal
	}

	status := statusFor(code)
	resp := errorResponse{Error: string(code)}
	if status < http.StatusInternalServerError {
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, status, resp)
}

// Validatable is implemented by request types that validate and normalize
// themselves after JSON decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the request body into T, runs its validation, and
// writes the appropriate error response on failure. The bool result tells the
// handler whether to continue.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.WarnContext(ctx, "request decode failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "request body must be valid JSON"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
