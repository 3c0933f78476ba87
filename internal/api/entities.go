package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
)

func (s *Server) handleGetSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"base_url": s.engine.BaseURL(),
		"busy":     s.engine.Busy(),
		"count":    snap.Len(),
		"entities": snap,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.FetchAll(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"base_url": s.engine.BaseURL(),
		"count":    snap.Len(),
		"entities": snap,
	})
}

// handleListEntities searches the held snapshot.
// Query: q (substring of name, id or room), controllable=true.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entities := s.engine.Snapshot().Entities()

	if raw := r.URL.Query().Get("controllable"); raw != "" {
		only, err := strconv.ParseBool(raw)
		if err != nil {
			writeBadRequest(w, "controllable must be a boolean")
			return
		}
		if only {
			entities = entity.Controllable(entities)
		}
	}
	entities = entity.Search(entities, r.URL.Query().Get("q"))
	if entities == nil {
		entities = []entity.Entity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"entities": entities, "count": len(entities)})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entityID")
	e, ok := s.engine.Snapshot().Get(id)
	if !ok {
		writeNotFound(w, fmt.Sprintf("entity %s not in snapshot", id))
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleEntityTabs lists the user tabs of the active profile that contain the entity.
func (s *Server) handleEntityTabs(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Connection(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	tabs, err := s.tabs.TabsForEntity(r.Context(), b.ProfileID, chi.URLParam(r, "entityID"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	names := make([]string, 0, len(tabs))
	for _, t := range tabs {
		names = append(names, t.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabs": names})
}

// handleEntityAction dispatches an action and waits for reconciliation.
// Body: {"action": "turn_on", ...params}.
func (s *Server) handleEntityAction(w http.ResponseWriter, r *http.Request) {
	var req gateway.ActionRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, io.EOF) {
			writeBadRequest(w, "request body is required")
			return
		}
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	action, err := req.Parse()
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	entityID := chi.URLParam(r, "entityID")
	res, err := s.engine.Dispatch(r.Context(), entityID, action)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.Connection(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleSwitchURL flips the active profile to its other URL and refetches.
func (s *Server) handleSwitchURL(w http.ResponseWriter, r *http.Request) {
	b, err := s.engine.SwitchURL(r.Context())
	if err != nil && b.ProfileID == "" {
		s.writeFailure(w, r, err)
		return
	}
	resp := activationResponse{Connection: b, Entities: s.engine.Snapshot().Len()}
	if err != nil {
		status, code := classify(err)
		resp.SyncError = &Error{Status: status, Code: code, Message: err.Error()}
	}
	writeJSON(w, http.StatusOK, resp)
}
