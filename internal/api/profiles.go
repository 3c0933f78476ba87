package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/profile"
)

// createProfileRequest is the body of POST /profiles.
type createProfileRequest struct {
	Name           string `json:"name"`
	InternalURL    string `json:"internal_url"`
	ExternalURL    string `json:"external_url"`
	Token          string `json:"token"`
	PreferExternal bool   `json:"prefer_external"`
	Active         bool   `json:"active"`
}

// updateProfileRequest is the body of PATCH /profiles/{id}. Absent
// fields are left unchanged.
type updateProfileRequest struct {
	Name           *string `json:"name"`
	InternalURL    *string `json:"internal_url"`
	ExternalURL    *string `json:"external_url"`
	Token          *string `json:"token"`
	PreferExternal *bool   `json:"prefer_external"`
}

// activationResponse reports an activation. SyncError is set when the
// profile was activated but its first fetch failed.
type activationResponse struct {
	Connection any    `json:"connection"`
	Entities   int    `json:"entities"`
	SyncError  *Error `json:"sync_error,omitempty"`
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.profiles.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "count": len(profiles)})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	p := &profile.Profile{
		Name:           req.Name,
		InternalURL:    strings.TrimSpace(req.InternalURL),
		ExternalURL:    strings.TrimSpace(req.ExternalURL),
		Token:          req.Token,
		PreferExternal: req.PreferExternal,
	}
	if err := s.profiles.Create(r.Context(), p); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info("profile created", "profile_id", p.ID, "name", p.Name)

	if req.Active {
		resp := s.activate(r, p.ID)
		writeJSON(w, http.StatusCreated, map[string]any{"profile": p, "activation": resp})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"profile": p})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	p, err := s.profiles.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.InternalURL != nil {
		p.InternalURL = strings.TrimSpace(*req.InternalURL)
	}
	if req.ExternalURL != nil {
		p.ExternalURL = strings.TrimSpace(*req.ExternalURL)
	}
	if req.Token != nil {
		p.Token = *req.Token
	}
	if req.PreferExternal != nil {
		p.PreferExternal = *req.PreferExternal
	}

	if err := s.profiles.Update(r.Context(), p); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.profiles.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.logger.Info("profile deleted", "profile_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.profiles.GetByID(r.Context(), id); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	resp := s.activate(r, id)
	if resp.Connection == nil {
		status := resp.SyncError.Status
		writeJSON(w, status, resp.SyncError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// activate switches to profile id and performs its first fetch. A fetch
// failure does not undo the activation.
func (s *Server) activate(r *http.Request, id string) activationResponse {
	b, err := s.engine.Activate(r.Context(), id)
	if b.ProfileID == "" {
		status, code := classify(err)
		return activationResponse{SyncError: &Error{Status: status, Code: code, Message: err.Error()}}
	}

	resp := activationResponse{Connection: b, Entities: s.engine.Snapshot().Len()}
	if err != nil {
		s.logger.Warn("profile activated but initial fetch failed",
			"profile_id", id,
			"kind", gateway.KindOf(err),
			"error", err,
		)
		status, code := classify(err)
		resp.SyncError = &Error{Status: status, Code: code, Message: err.Error()}
	}
	return resp
}

// selectRequest is the body of POST /profiles/{id}/selection.
type selectRequest struct {
	EntityID string `json:"entity_id"`
}

// reorderRequest is the body of PUT /profiles/{id}/selection.
type reorderRequest struct {
	EntityIDs []string `json:"entity_ids"`
}

func (s *Server) handleListSelection(w http.ResponseWriter, r *http.Request) {
	selected, err := s.selection.ListSelected(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if selected == nil {
		selected = []profile.SelectedEntity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"selection": selected, "count": len(selected)})
}

func (s *Server) handleSelectEntity(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	sel, err := s.selection.Select(r.Context(), chi.URLParam(r, "id"), req.EntityID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sel)
}

func (s *Server) handleReorderSelection(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.selection.Reorder(r.Context(), id, req.EntityIDs); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.handleListSelection(w, r)
}

func (s *Server) handleDeselectEntity(w http.ResponseWriter, r *http.Request) {
	if err := s.selection.Deselect(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entityID")); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
