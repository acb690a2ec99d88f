// ================== pkg/errors/errors.go =================
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal server error")
	ErrDuplicate    = errors.New("resource already exists")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflicting update")
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a domain error carrying a kind, a machine readable code and a
// message that is safe to show to API clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// Internal wraps an unexpected failure. The cause is never shown to clients.
func Internal(err error) *Error {
	return Wrap(KindInternal, "INTERNAL_ERROR", "Internal server error", err)
}

// KindOf resolves the kind of err, looking through wrapped errors and the
// package sentinels. Unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest), errors.Is(err, ErrDuplicate):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// As is a shortcut for extracting an *Error from a chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
