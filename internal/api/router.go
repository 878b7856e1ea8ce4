package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// JSON-RPC endpoint for MCP clients that use HTTP instead of stdio.
	r.Post("/mcp", s.handleMCP)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Tool registry: discovery plus direct invocation without the
		// JSON-RPC envelope.
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", s.handleListTools)
			r.Post("/{name}", s.handleCallTool)
		})

		r.Get("/stats", s.handleStats)
		r.Get("/audit", s.handleListAuditCalls)

		// WebSocket event stream for lifecycle updates.
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.db != nil {
		dbStatus := "ok"
		if err := s.db.HealthCheck(r.Context()); err != nil {
			dbStatus = "error"
			payload["status"] = "degraded"
		}
		payload["database"] = dbStatus
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleStats returns pool-wide device counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.manager.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to compute pool stats", "error", err)
		writeInternalError(w, "failed to compute pool stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
