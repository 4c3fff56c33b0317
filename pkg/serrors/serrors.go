// Package serrors implements semantic errors: sentinel kinds that classify a
// failure (not found, conflict, ...) combined with a free-form message and an
// optional wrapped cause. Callers branch on the kind with errors.Is while the
// message and cause keep the full context for logs.
package serrors

import (
	"errors"
	"fmt"
)

// Kind marks a semantic error category. Kinds are comparable sentinels
// created with NewKind.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind returns a fresh kind sentinel with the given name. The name is used
// as the error string when nothing else is attached.
func NewKind(name string) Kind { return kind{s: name} }

// Kinds used across the application. All of them round-trip through
// errors.Is/As when wrapped by Error.
var (
	// ErrNotFound: the entity does not exist (or is soft deleted).
	ErrNotFound = NewKind("NOT_FOUND")
	// ErrUnauthorized: authentication is missing or invalid.
	ErrUnauthorized = NewKind("UNAUTHORIZED")
	// ErrBadRequest: the input fails validation.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrConflict: the operation collides with existing state.
	ErrConflict = NewKind("CONFLICT")
	// ErrInternal: an unexpected failure inside the application.
	ErrInternal = NewKind("INTERNAL")
	// ErrTimeout: the operation ran out of time.
	ErrTimeout = NewKind("TIMEOUT")
	// ErrUnavailable: a required dependency cannot serve right now.
	ErrUnavailable = NewKind("UNAVAILABLE")
)

// Error couples a Kind with an optional message and an optional cause.
//
// errors.Is(err, target) matches when target equals the kind sentinel or
// anything in the cause chain; errors.As behaves the same way. The rendered
// string is "<msg>: <cause>", falling back to whichever of the two is set,
// and finally to the kind name.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With builds a semantic error from a kind and a formatted message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap builds a semantic error that also records err as the cause.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly builds a semantic error carrying nothing but the kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		if e.kind != nil {
			return e.kind.Error()
		}

		return "unknown error"
	}
}

// Unwrap exposes the cause so the errors package can walk the chain.
func (e *Error) Unwrap() error { return e.err }

// Is matches target against the kind sentinel first, then the cause chain.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	if e.err != nil && errors.Is(e.err, target) {
		return true
	}

	return false
}

// As tries the kind sentinel first, then the cause chain.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	if e.err != nil && errors.As(e.err, target) {
		return true
	}

	return false
}

// Kind returns the attached kind sentinel, nil when absent.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the attached message.
func (e *Error) Message() string { return e.msg }

// Cause returns the wrapped cause, nil when absent.
func (e *Error) Cause() error { return e.err }
