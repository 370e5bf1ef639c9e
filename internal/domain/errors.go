package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an operation failure for the caller. The core promises
// the kind plus a human-readable reason; rendering/localization is the
// caller's job.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindStateConflict      Kind = "state_conflict"
	KindAuthorization      Kind = "authorization"
	KindResourceExhaustion Kind = "resource_exhaustion"
	KindTransient          Kind = "transient"
	KindInternal           Kind = "internal"
)

// Error is the typed result every operation boundary returns on failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	// The cause often supplied the message verbatim; appending it again
	// would print the same text twice.
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may safely retry as-is.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Invalid(format string, args ...any) *Error {
	return newError(KindValidation, nil, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func StateConflict(err error, format string, args ...any) *Error {
	return newError(KindStateConflict, err, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindAuthorization, nil, format, args...)
}

func Exhausted(format string, args ...any) *Error {
	return newError(KindResourceExhaustion, nil, format, args...)
}

func Transient(err error, format string, args ...any) *Error {
	return newError(KindTransient, err, format, args...)
}

func Internal(err error, format string, args ...any) *Error {
	return newError(KindInternal, err, format, args...)
}

// KindOf extracts the kind from any error chain; unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
