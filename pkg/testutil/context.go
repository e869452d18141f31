package testutil

import (
	"context"
	"net/http"
	"time"

	id "escrowd/pkg/domain"
	"escrowd/pkg/requestcontext"
)

// ContextWithAccount builds a service-level context for the given caller,
// simulating what the auth middleware would do for authenticated requests.
func ContextWithAccount(account id.AccountID) context.Context {
	return requestcontext.WithAccountID(context.Background(), account)
}

// ContextWithAccountAt is ContextWithAccount with a pinned request time so
// assertions on timestamps are deterministic.
func ContextWithAccountAt(account id.AccountID, at time.Time) context.Context {
	ctx := requestcontext.WithAccountID(context.Background(), account)
	return requestcontext.WithTime(ctx, at)
}

// WithAccount adds a caller identity to an HTTP request's context. Invalid
// IDs are silently ignored.
func WithAccount(req *http.Request, account string) *http.Request {
	parsed, err := id.ParseAccountID(account)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithAccountID(req.Context(), parsed)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
