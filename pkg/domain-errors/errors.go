// Package derrors defines the coded error taxonomy shared by every layer
// above the stores.
//
// Stores report infrastructure facts as sentinel errors (pkg/platform/
// sentinel); services translate those into coded errors; the transport layer
// maps codes onto HTTP statuses. Codes are the contract — messages are for
// humans and carry no semantics.
package derrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that must react programmatically.
type Code string

const (
	// CodeUnauthenticated — no or invalid identity.
	CodeUnauthenticated Code = "unauthenticated"
	// CodeForbidden — identity known, operation not permitted.
	CodeForbidden Code = "forbidden"
	// CodeNotFound — record absent, or the caller must not learn it exists.
	CodeNotFound Code = "not_found"
	// CodeValidation — malformed input: bad enum value, dangling foreign
	// key, missing required field.
	CodeValidation Code = "validation_error"
	// CodeConflict — uniqueness violation not resolved by upsert.
	CodeConflict Code = "conflict"
	// CodeUnavailable — store timeout or transient failure. The only code
	// eligible for automatic retry, and only for reads.
	CodeUnavailable Code = "unavailable"
	// CodeInternal — unexpected failure; nothing actionable for the caller.
	CodeInternal Code = "internal"
	// CodeInvariantViolation — a domain invariant was about to be broken.
	// Services usually translate this into Validation or Conflict before it
	// reaches a caller.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded domain error. It optionally wraps a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
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

// New creates a coded error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that never got classified.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
