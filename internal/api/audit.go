package api

import (
	"net/http"
	"strconv"

	"github.com/devicelab/devpool-core/internal/audit"
)

// handleListAuditCalls returns paginated tool-call audit entries with
// optional filters.
//
// Query parameters:
//   - tool: filter by tool name (e.g. device.borrow)
//   - device_id: filter by target device
//   - outcome: "ok" or "error"
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditCalls(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeInternalError(w, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Tool:     q.Get("tool"),
		DeviceID: q.Get("device_id"),
		Outcome:  q.Get("outcome"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
