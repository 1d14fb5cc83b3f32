// Package errors provides domain-specific errors for the ttracker application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrNoActiveEntry  = errors.New("no active entry")
	ErrInvalidTime    = errors.New("invalid time")
	ErrMismatch       = errors.New("task mismatch")
	ErrTaskNotFound   = errors.New("task not found")
	ErrProjectUnknown = errors.New("unknown project")
	ErrTaskActive     = errors.New("task has an active entry")
	ErrStoreCorrupt   = errors.New("store failed invariant check")
	ErrRemoteAuth     = errors.New("remote service rejected credentials")
	ErrNotInitialised = errors.New("store not initialised")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeValidation    ErrorCode = "VALIDATION"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeRemote        ErrorCode = "REMOTE"
	CodeStore         ErrorCode = "STORE"
	CodeConfiguration ErrorCode = "CONFIG"
)

// TrackerError wraps errors with additional context for debugging and handling.
type TrackerError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *TrackerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *TrackerError) Unwrap() error {
	return e.Cause
}

// NewError creates a new TrackerError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *TrackerError {
	return &TrackerError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Is reports whether err matches target using errors.Is semantics.
// This is a convenience wrapper around the standard library's errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
// This is a convenience wrapper around the standard library's errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
