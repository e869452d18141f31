package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/requestcontext"
)

// TokenValidator validates a bearer token and resolves the caller identity.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.AccountID, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated account into the request context. Role checks (administrator,
// fund controller) stay in the service layer: the middleware only establishes
// WHO is calling, never what they may do.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			accountID, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccountID(ctx, accountID)))
		})
	}
}
