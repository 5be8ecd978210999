// Package errors provides structured error types for depsgen.
//
// Every failure that reaches the build operator carries a machine-readable
// code so that callers (the CLI, go:generate wrappers, CI scripts) can tell
// a corrupt lock file apart from a broken template without string matching.
//
// # Error Codes
//
// Codes are grouped by the layer that raises them:
//   - Structural errors come from graph construction and flattening
//     (NO_ROOT, DEPENDENCY_NOT_FOUND, DUPLICATE_PACKAGE, AMBIGUOUS_ROOT,
//     CYCLE_DETECTED).
//   - Configuration errors come from the host pipeline (INVALID_CONFIG,
//     TEMPLATE_ERROR, INVALID_LOCKFILE).
//
// None of them are retryable: the graph is deterministic for a given input,
// so the only recovery is fixing the input and running again.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDependencyNotFound, "dependency not found: %s", name)
//	if errors.Is(err, errors.ErrCodeDependencyNotFound) {
//	    // Handle missing dependency
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidLockfile, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural errors
	ErrCodeNoRoot             Code = "NO_ROOT"
	ErrCodeDependencyNotFound Code = "DEPENDENCY_NOT_FOUND"
	ErrCodeDuplicatePackage   Code = "DUPLICATE_PACKAGE"
	ErrCodeAmbiguousRoot      Code = "AMBIGUOUS_ROOT"
	ErrCodeCycleDetected      Code = "CYCLE_DETECTED"

	// Configuration errors
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeTemplate        Code = "TEMPLATE_ERROR"
	ErrCodeInvalidLockfile Code = "INVALID_LOCKFILE"

	// Input validation errors
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
