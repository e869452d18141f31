// Package domain holds the identity types shared across escrowd packages.
//
// IDs are typed wrappers around UUIDs so the compiler rejects cross-type
// assignment at package boundaries. The zero value of an ID is the null
// identity; ledger operations reject it wherever an identity is required.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "escrowd/pkg/domain-errors"
)

// AccountID identifies a principal on the ledger: the administrator, the
// fund controller, or a beneficiary.
type AccountID uuid.UUID

// NilAccount is the null identity.
var NilAccount = AccountID(uuid.Nil)

// NewAccountID returns a fresh random account identity.
func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

// ParseAccountID parses an account identity from its string form.
// Empty strings, malformed UUIDs, and the nil UUID are all rejected:
// the null identity is never a valid input at a trust boundary.
func ParseAccountID(s string) (AccountID, error) {
	if strings.TrimSpace(s) == "" {
		return NilAccount, dErrors.New(dErrors.CodeInvalidArgument, "account id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return NilAccount, dErrors.Wrap(err, dErrors.CodeInvalidArgument, "account id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return NilAccount, dErrors.New(dErrors.CodeInvalidArgument, "account id must not be the null identity")
	}
	return AccountID(parsed), nil
}

func (a AccountID) String() string {
	return uuid.UUID(a).String()
}

// IsZero reports whether the ID is the null identity.
func (a AccountID) IsZero() bool {
	return uuid.UUID(a) == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler so AccountID can be used
// as a JSON object key (allocation and blacklist maps serialize directly).
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(a).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike ParseAccountID
// it accepts the nil UUID: persisted state may legitimately carry the zero
// value and round-tripping must not corrupt it.
func (a *AccountID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidArgument, "account id must be a valid UUID")
	}
	*a = AccountID(parsed)
	return nil
}
