// Package apperr defines the typed errors surfaced by the session and cache layers.
//
// Callers match by category with errors.Is against the sentinels:
//
//	if errors.Is(err, apperr.ErrAuth) {
//	    // show the server message to the user
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an error category.
type Code string

// Error categories.
const (
	CodeNetwork    Code = "NETWORK"
	CodeAuth       Code = "AUTH"
	CodeValidation Code = "VALIDATION"
	CodeNotFound   Code = "NOT_FOUND"
	CodeStaleToken Code = "STALE_TOKEN"
	CodeFetch      Code = "FETCH"
)

// Error is a categorised failure with an optional HTTP status and cause.
type Error struct {
	Code    Code
	Message string
	Status  int
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrNetwork    = &Error{Code: CodeNetwork, Message: "network error"}
	ErrAuth       = &Error{Code: CodeAuth, Message: "authentication failed"}
	ErrValidation = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrStaleToken = &Error{Code: CodeStaleToken, Message: "session token expired"}
	ErrFetch      = &Error{Code: CodeFetch, Message: "fetch failed"}
)

// Network wraps a transport failure.
func Network(cause error) *Error {
	return &Error{Code: CodeNetwork, Message: "network error", cause: cause}
}

// Auth reports rejected credentials; msg is the server-provided text.
func Auth(status int, msg string) *Error {
	return &Error{Code: CodeAuth, Message: orDefault(msg, "authentication failed"), Status: status}
}

// Validation reports a 4xx rejection of user input, surfaced verbatim.
func Validation(status int, msg string) *Error {
	return &Error{Code: CodeValidation, Message: orDefault(msg, "validation failed"), Status: status}
}

// NotFound reports a missing entity.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: orDefault(msg, "not found"), Status: 404}
}

// StaleToken reports a persisted token the server no longer accepts.
func StaleToken(msg string) *Error {
	return &Error{Code: CodeStaleToken, Message: orDefault(msg, "session token expired"), Status: 401}
}

// Fetch reports any other unsuccessful response.
func Fetch(status int, msg string) *Error {
	return &Error{Code: CodeFetch, Message: orDefault(msg, fmt.Sprintf("unexpected status %d", status)), Status: status}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Status: e.Status, cause: err}
}

func orDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
