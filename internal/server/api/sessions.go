package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/store"
)

// SessionsHandler serves the processing run history.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

type sessionResponse struct {
	ID         string                `json:"id"`
	Mode       string                `json:"mode"`
	Gestures   bool                  `json:"gestures"`
	Decimation int                   `json:"decimation"`
	StartedAt  string                `json:"started_at"`
	StoppedAt  string                `json:"stopped_at,omitempty"`
	Counters   store.SessionCounters `json:"counters"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// ServeHTTP handles GET /api/sessions?limit=n.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(records))}
	for _, rec := range records {
		s := sessionResponse{
			ID:         rec.ID,
			Mode:       rec.Mode,
			Gestures:   rec.Gestures,
			Decimation: rec.Decimation,
			StartedAt:  rec.StartedAt.Format(time.RFC3339),
			Counters:   rec.Counters,
		}
		if rec.StoppedAt != nil {
			s.StoppedAt = rec.StoppedAt.Format(time.RFC3339)
		}
		response.Sessions = append(response.Sessions, s)
	}

	writeJSON(w, http.StatusOK, response)
}
