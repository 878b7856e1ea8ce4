package api

import (
	"encoding/json"
	"net/http"

	"github.com/devicelab/devpool-core/internal/tools"
)

// Error represents a structured error response for non-tool endpoints.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeInternal   = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeToolError writes a structured tool error envelope with the HTTP
// status implied by its code.
func writeToolError(w http.ResponseWriter, toolErr *tools.Error) {
	writeJSON(w, toolErrorStatus(toolErr.Code), tools.ErrorEnvelope{Error: toolErr})
}

// toolErrorStatus maps tool error codes to HTTP status codes.
func toolErrorStatus(code string) int {
	switch code {
	case tools.CodeInvalidParameters:
		return http.StatusBadRequest
	case tools.CodeNotFound, tools.CodeUnknownTool:
		return http.StatusNotFound
	case tools.CodeAlreadyExists, tools.CodeInvalidState:
		return http.StatusConflict
	default:
		// IO_ERROR and INTERNAL_ERROR both indicate server-side failure.
		return http.StatusInternalServerError
	}
}
