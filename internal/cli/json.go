package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/host"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output. Each one tells automation what
// to try next.
const (
	ErrCodeConfigNotFound   = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeProbeFailed      = "PROBE_FAILED"
	ErrCodeKeyRejected      = "KEY_REJECTED"
	ErrCodePasswordRejected = "PASSWORD_REJECTED"
	ErrCodeSessionError     = "SESSION_ERROR"
	ErrCodeKeygenFailed     = "KEYGEN_FAILED"
	ErrCodeTransferFailed   = "TRANSFER_FAILED"
	ErrCodeUnknown          = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	env := JSONEnvelope{
		Success: true,
		Data:    data,
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	env := JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	}
	return writeJSONEnvelope(w, env)
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	env := JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	}
	return writeJSONEnvelope(w, env)
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var probeErr *host.ProbeError
	hasProbe := stderrors.As(err, &probeErr)

	var vmErr *errors.Error
	if stderrors.As(err, &vmErr) {
		out := &JSONError{
			Code:       mapErrorCode(vmErr),
			Message:    vmErr.Message,
			Suggestion: vmErr.Suggestion,
		}
		if hasProbe {
			out.Details = probeDetails(probeErr)
		}
		return out
	}

	if hasProbe {
		return &JSONError{
			Code:    ErrCodeProbeFailed,
			Message: probeErr.Error(),
			Details: probeDetails(probeErr),
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode picks a machine-readable code. The failure reason wins over
// the error code since it says what actually went wrong.
func mapErrorCode(e *errors.Error) string {
	switch e.Reason {
	case errors.ReasonProbe:
		return ErrCodeProbeFailed
	case errors.ReasonAuthKeyRejected:
		return ErrCodeKeyRejected
	case errors.ReasonAuthPasswordRejected:
		return ErrCodePasswordRejected
	case errors.ReasonSession:
		return ErrCodeSessionError
	}

	switch e.Code {
	case errors.ErrConfig:
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, "not found") || strings.Contains(msg, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrKeygen:
		return ErrCodeKeygenFailed
	case errors.ErrProbe:
		return ErrCodeProbeFailed
	case errors.ErrTransfer:
		return ErrCodeTransferFailed
	}
	return ErrCodeUnknown
}

func probeDetails(p *host.ProbeError) map[string]interface{} {
	return map[string]interface{}{
		"reason": p.Reason.String(),
		"host":   p.Host,
	}
}
