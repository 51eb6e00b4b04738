// Package apperror defines the error taxonomy the HTTP layer renders.
//
// Operational errors are expected outcomes (bad input, bad credentials, a
// compromised session) and their message is safe to show to clients.
// Anything else is a programmer or infrastructure fault and is masked in
// production.
package apperror

import (
	"errors"
	"net/http"
	"runtime/debug"
)

const (
	CodeValidation         = "validation_failed"
	CodeConflict           = "conflict"
	CodeUnauthorized       = "unauthorized"
	CodeSessionCompromised = "session_compromised"
	CodeNotFound           = "not_found"
	CodeTooManyRequests    = "too_many_requests"
	CodeUnavailable        = "service_unavailable"
	CodeInternal           = "internal_error"
)

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Status      int
	Code        string
	Message     string
	Fields      []FieldError
	Operational bool

	cause error
	stack []byte
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Stack is the goroutine stack captured when a non-operational error was built.
func (e *Error) Stack() []byte { return e.stack }

// StatusText is "fail" for client errors and "error" for server errors.
func (e *Error) StatusText() string {
	if e.Status >= 400 && e.Status < 500 {
		return "fail"
	}
	return "error"
}

// Retryable reports whether the client may retry the same request unchanged.
func (e *Error) Retryable() bool {
	return e.Status == http.StatusServiceUnavailable || e.Status == http.StatusTooManyRequests
}

func newOperational(status int, code, msg string) *Error {
	return &Error{Status: status, Code: code, Message: msg, Operational: true}
}

func Validation(fields []FieldError) *Error {
	e := newOperational(http.StatusBadRequest, CodeValidation, "Invalid input data")
	e.Fields = fields
	return e
}

func Conflict(msg string) *Error {
	return newOperational(http.StatusConflict, CodeConflict, msg)
}

func Unauthorized(msg string) *Error {
	return newOperational(http.StatusUnauthorized, CodeUnauthorized, msg)
}

// SessionCompromised signals that a refresh token was replayed and every
// session of its owner was revoked.
func SessionCompromised() *Error {
	return newOperational(http.StatusUnauthorized, CodeSessionCompromised, "Session compromised")
}

func NotFound(msg string) *Error {
	return newOperational(http.StatusNotFound, CodeNotFound, msg)
}

func TooManyRequests(msg string) *Error {
	return newOperational(http.StatusTooManyRequests, CodeTooManyRequests, msg)
}

// Unavailable reports a transient dependency outage. Nothing was changed.
func Unavailable(cause error) *Error {
	e := newOperational(http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable, please retry")
	e.cause = cause
	return e
}

// Internal wraps an unexpected failure and records where it happened.
func Internal(cause error) *Error {
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "Internal server error",
		cause:   cause,
		stack:   debug.Stack(),
	}
}

// From returns err as an *Error, treating anything unrecognised as Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
