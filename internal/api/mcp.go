package api

import (
	"io"
	"net/http"
)

// handleMCP processes one JSON-RPC message per POST request.
//
// This serves MCP clients that speak streamable HTTP instead of stdio.
// Notifications get 202 Accepted with no body, matching the transport
// specification.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}

	resp := s.mcpHandler.HandleMessage(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
