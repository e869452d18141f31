package token

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowd/internal/platform/middleware"
	"escrowd/pkg/domain"
	"escrowd/pkg/platform/secrets"
	"escrowd/pkg/testutil"
)

type authTestEnv struct {
	router     http.Handler
	jwt        *JWTService
	store      *InMemoryCredentialStore
	controller domain.AccountID
	alice      domain.AccountID
}

// newAuthTestEnv mounts the token endpoints the way the server does: minting
// is public, credential registration sits behind bearer auth.
func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	env := &authTestEnv{
		jwt:        NewJWTService("auth-handler-test-key", time.Hour),
		store:      NewInMemoryCredentialStore(),
		controller: domain.NewAccountID(),
		alice:      domain.NewAccountID(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(env.store, env.jwt, stubRoles{controller: env.controller}, WithLogger(logger))
	require.NoError(t, err)

	h := NewHandler(svc, 3600, logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(env.jwt, logger))
		h.RegisterProtected(r)
	})
	env.router = r
	return env
}

// seedCredential stores a hashed secret for the account.
func (e *authTestEnv) seedCredential(t *testing.T, account domain.AccountID, secret string) {
	t.Helper()
	hash, err := secrets.Hash(secret)
	require.NoError(t, err)
	require.NoError(t, e.store.Save(context.Background(), Credential{
		Account:    account,
		SecretHash: hash,
	}))
}

func (e *authTestEnv) as(t *testing.T, req *http.Request, account domain.AccountID) *http.Request {
	t.Helper()
	signed, err := e.jwt.GenerateToken(account)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)
	return req
}

func TestHandleToken(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedCredential(t, env.alice, "alice-secret")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{
		"account_id": env.alice.String(),
		"secret":     "alice-secret",
	})
	rr := testutil.DoRequest(env.router, req)
	testutil.AssertStatusOK(t, rr)

	resp := testutil.UnmarshalResponse[TokenResponse](t, rr)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	account, err := env.jwt.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, env.alice, account)
}

func TestHandleTokenRejections(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedCredential(t, env.alice, "alice-secret")

	t.Run("wrong secret", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{
			"account_id": env.alice.String(),
			"secret":     "guessed",
		})
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("unknown account looks the same as a wrong secret", func(t *testing.T) {
		wrongSecret := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{
			"account_id": env.alice.String(),
			"secret":     "guessed",
		})
		unknownAccount := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{
			"account_id": domain.NewAccountID().String(),
			"secret":     "guessed",
		})
		first := testutil.UnmarshalErrorResponse(t, testutil.DoRequest(env.router, wrongSecret))
		second := testutil.UnmarshalErrorResponse(t, testutil.DoRequest(env.router, unknownAccount))
		assert.Equal(t, first, second)
	})

	t.Run("missing secret", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{
			"account_id": env.alice.String(),
		})
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "invalid_argument")
	})

	t.Run("malformed account id", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{
			"account_id": "not-a-uuid",
			"secret":     "whatever",
		})
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnprocessableEntity, "invalid_argument")
	})
}

func TestHandleRegister(t *testing.T) {
	env := newAuthTestEnv(t)

	t.Run("requires authentication", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/credentials", map[string]any{
			"account_id": env.alice.String(),
		})
		rr := testutil.DoRequest(env.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("controller registers a beneficiary", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/credentials", map[string]any{
			"account_id": env.alice.String(),
		})
		rr := testutil.DoRequest(env.router, env.as(t, req, env.controller))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[RegisterResponse](t, rr)
		assert.Equal(t, env.alice, resp.AccountID)
		require.NotEmpty(t, resp.Secret)

		// The issued secret mints a working token.
		tokenReq := testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]any{
			"account_id": env.alice.String(),
			"secret":     resp.Secret,
		})
		rr = testutil.DoRequest(env.router, tokenReq)
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("non-controller cannot register", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/credentials", map[string]any{
			"account_id": domain.NewAccountID().String(),
		})
		rr := testutil.DoRequest(env.router, env.as(t, req, env.alice))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})
}
