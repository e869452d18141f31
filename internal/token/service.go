// Package token issues and validates the bearer tokens that authenticate
// ledger calls. Accounts hold a registered secret; exchanging it for a
// short-lived JWT is the only way to obtain one.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/platform/secrets"
	"escrowd/pkg/platform/sentinel"
	"escrowd/pkg/requestcontext"
)

// RoleChecker reports whether an account currently holds the fund controller
// role. The ledger service implements it.
type RoleChecker interface {
	IsController(ctx context.Context, account domain.AccountID) (bool, error)
}

// Service exchanges account secrets for signed tokens and provisions new
// credentials.
type Service struct {
	store  CredentialStore
	jwt    *JWTService
	roles  RoleChecker
	logger *slog.Logger
}

// Option configures optional Service dependencies.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store CredentialStore, jwtService *JWTService, roles RoleChecker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("credential store is required")
	}
	if jwtService == nil {
		return nil, errors.New("jwt service is required")
	}
	if roles == nil {
		return nil, errors.New("role checker is required")
	}

	s := &Service{
		store:  store,
		jwt:    jwtService,
		roles:  roles,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Token verifies an account's secret and issues a signed bearer token.
// Unknown accounts and bad secrets produce the same error so callers cannot
// probe which accounts hold credentials.
func (s *Service) Token(ctx context.Context, account domain.AccountID, secret string) (string, error) {
	cred, err := s.store.Lookup(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid account or secret")
		}
		return "", fmt.Errorf("could not look up credential: %w", err)
	}

	if err := secrets.Verify(secret, cred.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid account or secret")
		}
		return "", err
	}

	signed, err := s.jwt.GenerateToken(account)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	s.logger.InfoContext(ctx, "token issued",
		"account", account,
		"request_id", requestcontext.RequestID(ctx),
	)
	return signed, nil
}

// Register provisions a fresh secret for an account and returns the
// cleartext exactly once. Only the fund controller may register; registering
// an account that already holds a credential rotates its secret.
func (s *Service) Register(ctx context.Context, account domain.AccountID) (string, error) {
	actor := requestcontext.AccountID(ctx)
	if actor.IsZero() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}

	isController, err := s.roles.IsController(ctx, actor)
	if err != nil {
		return "", err
	}
	if !isController {
		return "", dErrors.New(dErrors.CodeUnauthorized, "only the fund controller may register credentials")
	}

	if account.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "account id is required")
	}

	secret, err := secrets.Generate()
	if err != nil {
		return "", err
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return "", err
	}

	cred := Credential{
		Account:    account,
		SecretHash: hash,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.Save(ctx, cred); err != nil {
		return "", fmt.Errorf("could not save credential: %w", err)
	}

	s.logger.InfoContext(ctx, "credential registered",
		"account", account,
		"actor", actor,
		"request_id", requestcontext.RequestID(ctx),
	)
	return secret, nil
}

// Bootstrap seeds a store with pre-hashed principals from configuration so
// the administrator and fund controller can authenticate on first boot.
func Bootstrap(ctx context.Context, store CredentialStore, creds ...Credential) error {
	for _, cred := range creds {
		if cred.Account.IsZero() || cred.SecretHash == "" {
			return errors.New("bootstrap credential needs an account and a secret hash")
		}
		if err := store.Save(ctx, cred); err != nil {
			return fmt.Errorf("could not bootstrap credential for %s: %w", cred.Account, err)
		}
	}
	return nil
}
