// Package apperr defines the error taxonomy shared by the identity service.
// Every known failure carries a Kind with an HTTP status and a message that
// is safe to expose; anything else is treated as internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with its category.
type Kind string

const (
	// KindUnauthorized means no or invalid session.
	KindUnauthorized Kind = "unauthorized"

	// KindForbidden means authenticated but insufficient privilege.
	KindForbidden Kind = "forbidden"

	// KindValidation means a malformed request payload or a known
	// verification failure (e.g. wrong 2FA code).
	KindValidation Kind = "validation"

	// KindNotFound means the operation targets a resource absent for
	// this caller.
	KindNotFound Kind = "not_found"

	// KindConflict means a business rule was violated, e.g. a pending
	// operation already exists.
	KindConflict Kind = "conflict"

	// KindInternal is everything unexpected. Its detail is logged
	// server-side and never exposed.
	KindInternal Kind = "internal"
)

// statusFor maps kinds to HTTP status codes.
var statusFor = map[Kind]int{
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindValidation:   http.StatusBadRequest,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindInternal:     http.StatusInternalServerError,
}

// Error is a tagged error with an HTTP status and a safe-to-expose message.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds structured field-level detail for validation errors.
	Fields map[string]string
	// Err is the wrapped cause, if any. Never exposed to callers.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code for the error's kind.
func (e *Error) Status() int {
	if s, ok := statusFor[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New creates a tagged error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a tagged error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// ValidationFields creates a validation error with field-level detail.
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NotFound creates a not-found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Conflict creates a conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Internal wraps an unexpected error. The message shown to callers is
// always generic; the cause is for server-side logs only.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// FromError extracts the tagged error from err's chain. Untagged errors
// are reduced to KindInternal.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
