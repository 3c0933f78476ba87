package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-remote/internal/tab"
)

// createTabRequest is the body of POST /tabs.
type createTabRequest struct {
	Name string `json:"name"`
}

// updateTabRequest is the body of PATCH /tabs/{id}.
type updateTabRequest struct {
	Name      *string `json:"name"`
	SortOrder *int    `json:"sort_order"`
}

// handleListTabs returns the tab strip of the active profile, "All" first.
func (s *Server) handleListTabs(w http.ResponseWriter, r *http.Request) {
	names, err := s.engine.Tabs(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabs": names})
}

// handleGetView returns the held snapshot filtered for one tab and
// grouped by room.
func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(r.Context(), chi.URLParam(r, "tab"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tab":    view.Tab,
		"count":  view.Len(),
		"groups": view.Groups,
	})
}

// handleCreateTab adds a tab to the active profile.
func (s *Server) handleCreateTab(w http.ResponseWriter, r *http.Request) {
	var req createTabRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	b, err := s.engine.Connection(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	t := &tab.Tab{ProfileID: b.ProfileID, Name: req.Name}
	if err := s.tabs.Create(r.Context(), t); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTab(w http.ResponseWriter, r *http.Request) {
	var req updateTabRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	t, err := s.tabs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.SortOrder != nil {
		t.SortOrder = *req.SortOrder
	}
	if err := s.tabs.Update(r.Context(), t); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTab(w http.ResponseWriter, r *http.Request) {
	if err := s.tabs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.tabs.Assign(r.Context(), id, chi.URLParam(r, "entityID")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeTabEntities(w, r, id)
}

func (s *Server) handleUnassignEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.tabs.GetByID(r.Context(), id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.tabs.Unassign(r.Context(), id, chi.URLParam(r, "entityID")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeTabEntities(w, r, id)
}

func (s *Server) writeTabEntities(w http.ResponseWriter, r *http.Request, tabID string) {
	ids, err := s.tabs.EntityIDs(r.Context(), tabID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tab_id": tabID, "entity_ids": ids})
}
