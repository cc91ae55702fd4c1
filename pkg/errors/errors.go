// Package errors defines the structured error type used across the Nimbus
// service. Every error carries a stable machine code and an HTTP status so
// handlers can map failures without inspecting error strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes returned in API responses.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeQuotaExceeded      = "quota_exceeded"
	CodeRateLimitExceeded  = "rate_limit_exceeded"
	CodeUpstreamError      = "upstream_error"
	CodeServiceUnavailable = "service_unavailable"
	CodeInternal           = "internal_error"
)

// Error is the structured application error.
type Error struct {
	Code     string
	Status   int
	Message  string
	Metadata map[string]any

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// WithMetadata attaches contextual metadata surfaced in API responses.
func (e *Error) WithMetadata(key string, value any) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// New creates an Error with an explicit code and HTTP status.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code string, status int, format string, args ...any) *Error {
	return New(code, status, fmt.Sprintf(format, args...))
}

// ErrInvalidRequest reports a malformed or incomplete request.
func ErrInvalidRequest(message string) *Error {
	return New(CodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrUnauthorized reports a failed authentication.
func ErrUnauthorized(message string) *Error {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// ErrForbidden reports an authenticated caller lacking a required role.
func ErrForbidden(message string) *Error {
	return New(CodeForbidden, http.StatusForbidden, message)
}

// ErrNotFound reports a missing resource.
func ErrNotFound(resource, id string) *Error {
	return Newf(CodeNotFound, http.StatusNotFound, "%s not found: %s", resource, id).
		WithMetadata("resource", resource).
		WithMetadata("id", id)
}

// ErrConflict reports a uniqueness or state conflict.
func ErrConflict(message string) *Error {
	return New(CodeConflict, http.StatusConflict, message)
}

// ErrQuotaExceeded reports that a user's monthly cost quota is exhausted.
func ErrQuotaExceeded(userID string, limit float64) *Error {
	return Newf(CodeQuotaExceeded, http.StatusTooManyRequests,
		"monthly cost quota exceeded (limit %.2f USD)", limit).
		WithMetadata("user_id", userID).
		WithMetadata("limit_usd", limit)
}

// ErrRateLimited reports a request rejected by the rate limiter.
func ErrRateLimited(scope string) *Error {
	return New(CodeRateLimitExceeded, http.StatusTooManyRequests,
		"too many requests, please retry later").
		WithMetadata("scope", scope)
}

// ErrUpstream reports a failure in an external dependency (IdP, model API).
func ErrUpstream(message string) *Error {
	return New(CodeUpstreamError, http.StatusBadGateway, message)
}

// ErrUnavailable reports a backing store or broker outage. Login-state store
// failures map here so CSRF protection fails loudly rather than silently.
func ErrUnavailable(message string) *Error {
	return New(CodeServiceUnavailable, http.StatusServiceUnavailable, message)
}

// ErrInternal reports an unexpected server-side condition.
func ErrInternal(message string) *Error {
	return New(CodeInternal, http.StatusInternalServerError, message)
}

// From normalizes any error into an *Error, defaulting to internal_error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal("an unexpected error occurred").WithCause(err)
}

// StatusOf returns the HTTP status for any error.
func StatusOf(err error) int {
	return From(err).Status
}

// IsCode reports whether err carries the given stable code.
func IsCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
