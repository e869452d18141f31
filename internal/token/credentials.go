package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"escrowd/pkg/domain"
	"escrowd/pkg/platform/sentinel"
)

// Credential binds an account to the bcrypt hash of its API secret.
// The cleartext secret exists only in the registration response.
type Credential struct {
	Account    domain.AccountID
	SecretHash string
	CreatedAt  time.Time
}

// CredentialStore persists account credentials.
type CredentialStore interface {
	Save(ctx context.Context, cred Credential) error
	Lookup(ctx context.Context, account domain.AccountID) (Credential, error)
}

// InMemoryCredentialStore keeps credentials in a process-local map.
type InMemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[domain.AccountID]Credential
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{
		creds: make(map[domain.AccountID]Credential),
	}
}

// Save upserts a credential. Saving an existing account rotates its secret.
func (s *InMemoryCredentialStore) Save(_ context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Account] = cred
	return nil
}

func (s *InMemoryCredentialStore) Lookup(_ context.Context, account domain.AccountID) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[account]
	if !ok {
		return Credential{}, fmt.Errorf("credential for account %s: %w", account, sentinel.ErrNotFound)
	}
	return cred, nil
}
