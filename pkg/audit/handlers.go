package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ListEventsHandler handles GET /api/v1/audit/events
// Query params: event_type, severity, actor, since (RFC 3339), limit
func ListEventsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := QueryFilter{
			EventType: q.Get("event_type"),
			Severity:  q.Get("severity"),
			Actor:     q.Get("actor"),
		}
		if s := q.Get("since"); s != "" {
			since, err := time.Parse(time.RFC3339, s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("since must be RFC 3339: %v", err))
				return
			}
			filter.Since = since
		}

		limit := 100
		if l := q.Get("limit"); l != "" {
			v, err := strconv.Atoi(l)
			if err != nil || v <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
				return
			}
			limit = min(v, MaxQueryLimit)
		}

		events, err := store.Query(r.Context(), filter, limit)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage_failure", "failed to query security events")
			return
		}
		if events == nil {
			events = []SecurityEvent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events": events,
			"size":   len(events),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":     code,
		"message":   message,
		"changed":   false,
		"retryable": status >= 500,
	})
}
