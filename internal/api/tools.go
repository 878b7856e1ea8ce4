package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devicelab/devpool-core/internal/tools"
)

// handleListTools returns the tool descriptors in registration order.
func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": s.registry.List(),
	})
}

// handleCallTool invokes one tool directly, without the JSON-RPC envelope.
//
// The request body is the tool's arguments object; an empty body means no
// arguments. Tool failures come back as the structured error envelope with
// a matching HTTP status.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args := map[string]any{}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeBadRequest(w, "request body too large")
			return
		}
		writeBadRequest(w, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			writeBadRequest(w, "request body must be a JSON object of tool arguments")
			return
		}
	}

	ctx := tools.WithSource(r.Context(), "http")
	result, toolErr := s.registry.Call(ctx, name, args)
	if toolErr != nil {
		writeToolError(w, toolErr)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
