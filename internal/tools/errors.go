package tools

import (
	"errors"
	"fmt"
	"time"

	"github.com/devicelab/devpool-core/internal/device"
)

// Error codes of the caller-visible taxonomy. Every failure leaving the
// dispatcher carries exactly one of these.
const (
	CodeInvalidParameters = "INVALID_PARAMETERS"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidState      = "INVALID_STATE"
	CodeIOError           = "IO_ERROR"
	CodeUnknownTool       = "UNKNOWN_TOOL"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Error is the caller-visible error envelope payload.
type Error struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// ErrorEnvelope is the wire shape wrapping an Error, matching what
// transports serialize on failure.
type ErrorEnvelope struct {
	Error *Error `json:"error"`
}

// newError builds a timestamped Error.
func newError(code, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now().UTC(),
	}
}

// mapError translates internal failures into the caller-visible taxonomy.
// Handlers may also return an *Error directly, which passes through
// unchanged.
func mapError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}

	switch {
	case errors.Is(err, device.ErrNotFound):
		return newError(CodeNotFound, "%s", err)
	case errors.Is(err, device.ErrExists):
		return newError(CodeAlreadyExists, "%s", err)
	case errors.Is(err, device.ErrInvalidState):
		return newError(CodeInvalidState, "%s", err)
	case errors.Is(err, device.ErrInvalidDevice),
		errors.Is(err, device.ErrInvalidID),
		errors.Is(err, device.ErrInvalidCategory),
		errors.Is(err, device.ErrInvalidStatus):
		return newError(CodeInvalidParameters, "%s", err)
	case errors.Is(err, device.ErrStore),
		errors.Is(err, device.ErrCorruptDocument):
		return newError(CodeIOError, "%s", err)
	default:
		return newError(CodeInternalError, "%s", err)
	}
}
