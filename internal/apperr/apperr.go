// Package apperr defines the error taxonomy shared by services and handlers.
//
// Services return *Error values built with the constructors below. Handlers map
// the Kind to a transport status; anything that is not an *Error is treated as
// an internal failure and never shown to the caller verbatim.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. An *Error unwraps to exactly one of these.
var (
	ErrInvalidArgument = errors.New("invalid_argument")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidState    = errors.New("invalid_state")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error is a classified, caller-safe error.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the kind sentinel so errors.Is(err, ErrConflict) works.
func (e *Error) Unwrap() error { return e.Kind }

// Code returns the machine-readable kind name, e.g. "conflict".
func (e *Error) Code() string {
	if e.Kind == nil {
		return "unknown"
	}
	return e.Kind.Error()
}

func newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) *Error {
	return newf(ErrInvalidArgument, format, args...)
}

func Conflict(format string, args ...any) *Error { return newf(ErrConflict, format, args...) }

func Forbidden(format string, args ...any) *Error { return newf(ErrForbidden, format, args...) }

func NotFound(format string, args ...any) *Error { return newf(ErrNotFound, format, args...) }

func InvalidState(format string, args ...any) *Error {
	return newf(ErrInvalidState, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return newf(ErrUnauthenticated, format, args...)
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
