// Package dErrors defines the typed errors surfaced at service boundaries.
//
// Every failed operation returns an *Error carrying a stable machine-readable
// Code and a human-readable Message. Codes are the contract: handlers map
// them to HTTP statuses, tests assert on them, and clients branch on them.
// Wrapped causes are preserved for logs but never leak into responses.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

const (
	// CodeUnauthorized: the caller does not hold the role the operation requires.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden: the caller holds a state (blacklisted) that blocks the action.
	CodeForbidden Code = "forbidden"
	// CodeInvalidArgument: null identity, zero amount, length mismatch,
	// sum mismatch, empty list. The caller must correct the input.
	CodeInvalidArgument Code = "invalid_argument"
	// CodeNotFound: a referenced account lacks the required whitelist or
	// blacklist state, or a stored entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeInsufficientFunds: held balance no longer covers an allocation.
	// Reaching it means the books and custody disagree.
	CodeInsufficientFunds Code = "insufficient_funds"
	// CodeConflict: concurrent modification or duplicate creation.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation: an aggregate invariant would be broken.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeBadRequest: malformed request body or parameters.
	CodeBadRequest Code = "bad_request"
	// CodeInternal: infrastructure failure. Details stay server-side.
	CodeInternal Code = "internal_error"
)

// Error is the concrete error type carried across layer boundaries.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New builds a domain error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a domain code and message to an underlying cause.
// The cause remains reachable through errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HasCode reports whether err (or anything it wraps) is a domain error
// carrying the given code.
func HasCode(err error, code Code) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf extracts the domain code from err, or CodeInternal when err is not
// a domain error. Returns the empty code for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return CodeInternal
}

// MessageOf extracts the domain message from err, or a generic fallback for
// non-domain errors so internal details never reach a client.
func MessageOf(err error) string {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Message
	}
	return "internal error"
}
