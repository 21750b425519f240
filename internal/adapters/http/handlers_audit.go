package web

import (
	"net/http"
	"strconv"
)

// defaultAuditLimit caps the audit history returned when no limit is given.
const defaultAuditLimit = 50

// handleAPIAuditLog returns the caller's consent audit history (GET /api/audit?limit=)
// PRE: Caller is authenticated by cookie or bearer token
// POST: Events are newest first; at most 500 are returned
func handleAPIAuditLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := apiSession(w, r)
	if !ok {
		return
	}

	limit := defaultAuditLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 || l > 500 {
			writeJSONError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = l
	}

	events, err := stores.AuditStore.ListByUser(r.Context(), sess.AccountID, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
