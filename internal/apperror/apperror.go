// Package apperror defines the error taxonomy shared by every layer.
//
// ERROR TAXONOMY:
// Remote calls fail in one of three ways, and callers need to tell them apart:
//   - ErrNetwork     → transport failure or a non-success HTTP status
//   - ErrAuth        → the evaluation API refused our credentials or token
//   - ErrEmptyResult → the call succeeded but returned nothing to work with
//
// ErrNotFound is used by the persistence layer for a cache miss, and
// ErrValidation for bad configuration.
//
// Every constructor returns an *AppError that wraps one of the sentinels, so
// callers use errors.Is(err, apperror.ErrAuth) instead of checking for empty
// strings or nil maps.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrNetwork     = errors.New("network failure")
	ErrAuth        = errors.New("auth failure")
	ErrEmptyResult = errors.New("empty result")
)

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error (transport, decode, ...)
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// apperror.ErrNetwork as well as context.DeadlineExceeded.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Network reports a failed remote operation. op names the call,
// e.g. "POST /register".
func Network(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrNetwork,
		Message: fmt.Sprintf("%s failed", op),
		Cause:   cause,
	}
}

// Auth reports that the evaluation API rejected the request's identity.
func Auth(op, message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: fmt.Sprintf("%s: %s", op, message),
	}
}

// EmptyResult reports that a call succeeded but the resource had no entries.
func EmptyResult(resource string) *AppError {
	return &AppError{
		Err:     ErrEmptyResult,
		Message: fmt.Sprintf("%s returned no entries", resource),
	}
}
