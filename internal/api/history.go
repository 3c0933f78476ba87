package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/history"
)

// handleHistory loads gateway history for a window, newest first.
// Query: window (last_hour|last_day|last_week), entity_id, q (keywords).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := history.ParseWindow(q.Get("window"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	events, err := s.history.Load(r.Context(), window, q.Get("entity_id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	events = history.Search(events, q.Get("q"))
	if events == nil {
		events = []entity.Entity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"window": window,
		"count":  len(events),
		"events": events,
	})
}
