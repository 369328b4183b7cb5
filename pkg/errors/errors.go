// Package errors provides structured error types for the asset graph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the graph engine, loaders, and CLI
//   - Machine-readable error codes for programmatic handling
//   - Diagnostics that carry the offending asset and tree location
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The engine distinguishes four families of failure:
//   - LOAD_ERROR: raw bytes could not be fetched
//   - PARSE_ERROR: content cannot be parsed into a tree for its kind
//   - SYNTAX_ERROR: a recoverable, localized malformed construct
//   - USAGE_ERROR / UNSUPPORTED: API misuse, always returned to the caller
//
// Inside a graph the first three are downgraded to warnings; standalone
// assets return them.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUsage, "cannot set url on %s", desc)
//	if errors.Is(err, errors.ErrCodeUsage) {
//	    // Handle misuse
//	}
//
//	err := errors.Wrap(errors.ErrCodeLoad, origErr, "failed to load %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Content errors, downgraded to diagnostics inside a graph
	ErrCodeLoad   Code = "LOAD_ERROR"
	ErrCodeParse  Code = "PARSE_ERROR"
	ErrCodeSyntax Code = "SYNTAX_ERROR"

	// Misuse errors, always returned
	ErrCodeUsage       Code = "USAGE_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"

	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidURL   Code = "INVALID_URL"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)

	Asset  string // URL or description of the offending asset (optional)
	Line   int    // 1-based line inside the asset, 0 if unknown
	Status int    // HTTP status for load failures, 0 if not applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Asset != "" {
		msg = fmt.Sprintf("%s (%s", msg, e.Asset)
		if e.Line > 0 {
			msg = fmt.Sprintf("%s:%d", msg, e.Line)
		}
		msg += ")"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithAsset records the offending asset and returns e for chaining.
func (e *Error) WithAsset(desc string) *Error {
	e.Asset = desc
	return e
}

// WithLine records the line inside the asset and returns e for chaining.
func (e *Error) WithLine(line int) *Error {
	e.Line = line
	return e
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

// parentCodes maps refined codes to the category they belong to.
var parentCodes = map[Code]Code{
	ErrCodeUnsupported: ErrCodeUsage,
}

// Is reports whether err has the given error code or a code refining it
// (UNSUPPORTED matches USAGE_ERROR).
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for c := e.Code; c != ""; c = parentCodes[c] {
		if c == code {
			return true
		}
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

// IsRecoverable reports whether err is a content error that a graph
// downgrades to a diagnostic instead of returning.
func IsRecoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeLoad, ErrCodeParse, ErrCodeSyntax:
		return true
	}
	return false
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

// LoadError describes a failed fetch of raw bytes.
// Status is the HTTP status code when the failure came from a server response.
type LoadError struct {
	URL     string
	Status  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("load %s: %d %s", e.URL, e.Status, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("load %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("load %s: %s", e.URL, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *LoadError) Code() Code {
	return ErrCodeLoad
}
