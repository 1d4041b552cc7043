// Package diagnostics defines the user-facing error value reported by every
// phase of the kernel.
package diagnostics

import (
	"errors"
	"fmt"

	"github.com/funvibe/kernel/internal/token"
)

// ErrorCode classifies a diagnostic.
type ErrorCode string

const (
	// Typing
	ErrT001 ErrorCode = "T001" // type mismatch
	ErrT002 ErrorCode = "T002" // duplicate tuple field
	ErrT003 ErrorCode = "T003" // void value where a value is required
	ErrT004 ErrorCode = "T004" // undefined symbol
	ErrT005 ErrorCode = "T005" // bad array dimension or index set
	ErrT006 ErrorCode = "T006" // bad tuple projection
	ErrT007 ErrorCode = "T007" // exit outside an exitable function

	// Assignment
	ErrA001 ErrorCode = "A001" // unassignable location

	// Loading
	ErrL001 ErrorCode = "L001"

	// Runtime
	ErrR001 ErrorCode = "R001"
)

// DiagnosticError is an error tied to a source location.
type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	File    string
	Message string
	// Cause is the underlying error, if any (e.g. a unification failure).
	Cause error
}

// NewError creates a diagnostic at tok.
func NewError(code ErrorCode, tok token.Token, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: msg}
}

// Errorf creates a diagnostic with a formatted message.
func Errorf(code ErrorCode, tok token.Token, format string, args ...any) *DiagnosticError {
	return NewError(code, tok, fmt.Sprintf(format, args...))
}

// Wrap creates a diagnostic whose message is cause's message.
func Wrap(code ErrorCode, tok token.Token, cause error) *DiagnosticError {
	return &DiagnosticError{Code: code, Token: tok, Message: cause.Error(), Cause: cause}
}

func (e *DiagnosticError) Error() string {
	loc := e.Token.String()
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	return fmt.Sprintf("%s: [%s] %s", loc, e.Code, e.Message)
}

func (e *DiagnosticError) Unwrap() error {
	return e.Cause
}

// WithFile returns e with its file set, unless one is already set.
func (e *DiagnosticError) WithFile(file string) *DiagnosticError {
	if e.File == "" {
		e.File = file
	}
	return e
}

// CodeOf returns the code of the first DiagnosticError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var d *DiagnosticError
	if errors.As(err, &d) {
		return d.Code
	}
	return ""
}

// AsDiagnostic returns the DiagnosticError in err's chain, or wraps err as
// a runtime error without a location.
func AsDiagnostic(err error) *DiagnosticError {
	var d *DiagnosticError
	if errors.As(err, &d) {
		return d
	}
	return &DiagnosticError{Code: ErrR001, Message: err.Error(), Cause: err}
}
