// Package errors provides structured error types for tokenforge.
//
// Generation distinguishes failures that abort a whole run from failures
// that only affect a single token. Error codes make that distinction
// machine-readable so the generator and CLI can decide how far a failure
// propagates:
//   - CONFIGURATION_ERROR: fatal, reported before any token is generated
//   - SAMPLING_WARNING: recovered locally, logged, the run continues
//   - RETRY_EXHAUSTED, IMAGE_ERROR, IO_ERROR: fatal to one token only
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "layer %q has no PNG files", name)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // abort the run
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeImage, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Run-level errors
	ErrCodeConfiguration Code = "CONFIGURATION_ERROR"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeNotFound      Code = "NOT_FOUND"

	// Recoverable conditions
	ErrCodeSamplingWarning Code = "SAMPLING_WARNING"

	// Per-token errors
	ErrCodeRetryExhausted Code = "RETRY_EXHAUSTED"
	ErrCodeImage          Code = "IMAGE_ERROR"
	ErrCodeIO             Code = "IO_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsTokenScoped reports whether err only affects the token it was raised for.
// Run-level codes and plain errors return false.
func IsTokenScoped(err error) bool {
	switch GetCode(err) {
	case ErrCodeRetryExhausted, ErrCodeImage, ErrCodeIO:
		return true
	}
	return false
}
