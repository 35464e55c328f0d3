package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes name the subsystem that produced an error.
const (
	ErrConfig   = "CONFIG"
	ErrSSH      = "SSH"
	ErrExec     = "EXEC"
	ErrKeygen   = "KEYGEN"
	ErrProbe    = "PROBE"
	ErrTransfer = "TRANSFER"
)

// Reason is the closed set of ways a provisioning operation can fail.
// Callers branch on the reason; the message and cause are for humans.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonProbe
	ReasonAuthKeyRejected
	ReasonAuthPasswordRejected
	ReasonSession
	ReasonOther
)

// String returns the short name used in logs and JSON output.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonProbe:
		return "probe-error"
	case ReasonAuthKeyRejected:
		return "auth-key-rejected"
	case ReasonAuthPasswordRejected:
		return "auth-password-rejected"
	case ReasonSession:
		return "session-error"
	default:
		return "other"
	}
}

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Reason     Reason
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Reason:     ReasonOther,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Reason:  ReasonOf(err),
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
// The reason is inherited from the cause when it carries one.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Reason:     ReasonOf(err),
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// WithReason sets the failure reason and returns the error for chaining.
func (e *Error) WithReason(r Reason) *Error {
	e.Reason = r
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var vpErr *Error
	if errors.As(err, &vpErr) {
		return vpErr.Code == code
	}
	return false
}

// ReasonOf reports why err happened. The outermost structured error with a
// reason set wins. Nil maps to ReasonNone, foreign errors to ReasonOther.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	var vpErr *Error
	for errors.As(err, &vpErr) {
		if vpErr.Reason != ReasonNone {
			return vpErr.Reason
		}
		if vpErr.Cause == nil {
			break
		}
		err = vpErr.Cause
	}
	return ReasonOther
}

// HasReason reports whether err failed for the given reason.
func HasReason(err error, r Reason) bool {
	return ReasonOf(err) == r
}

// ExitError carries a process exit status up to main without printing anything.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError for the given status.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the status from an ExitError anywhere in the chain.
func GetExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
