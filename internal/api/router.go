package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-remote/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsHandler().Handler)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Reads
			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermStateRead))

				r.Get("/connection", s.handleGetConnection)
				r.Get("/snapshot", s.handleGetSnapshot)
				r.Get("/entities", s.handleListEntities)
				r.Get("/entities/{entityID}", s.handleGetEntity)
				r.Get("/entities/{entityID}/tabs", s.handleEntityTabs)
				r.Get("/tabs", s.handleListTabs)
				r.Get("/views/{tab}", s.handleGetView)
				r.Get("/history", s.handleHistory)
				r.Get("/profiles", s.handleListProfiles)
				r.Get("/profiles/{id}", s.handleGetProfile)
				r.Get("/profiles/{id}/selection", s.handleListSelection)
				r.Get("/ws", s.handleWebSocket)
			})

			// Operation
			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermEntityOperate))

				r.Post("/snapshot/refresh", s.handleRefresh)
				r.Post("/connection/switch", s.handleSwitchURL)
				r.Post("/entities/{entityID}/actions", s.handleEntityAction)
			})

			// Configuration
			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermConfigManage))

				r.Post("/profiles", s.handleCreateProfile)
				r.Patch("/profiles/{id}", s.handleUpdateProfile)
				r.Delete("/profiles/{id}", s.handleDeleteProfile)
				r.Post("/profiles/{id}/activate", s.handleActivateProfile)
				r.Post("/profiles/{id}/selection", s.handleSelectEntity)
				r.Put("/profiles/{id}/selection", s.handleReorderSelection)
				r.Delete("/profiles/{id}/selection/{entityID}", s.handleDeselectEntity)

				r.Post("/tabs", s.handleCreateTab)
				r.Patch("/tabs/{id}", s.handleUpdateTab)
				r.Delete("/tabs/{id}", s.handleDeleteTab)
				r.Put("/tabs/{id}/entities/{entityID}", s.handleAssignEntity)
				r.Delete("/tabs/{id}/entities/{entityID}", s.handleUnassignEntity)
			})
		})
	})

	return r
}

// handleHealth reports the server status and whether the active gateway
// answers. An unreachable gateway does not make the server unhealthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gw := "ok"
	if err := s.engine.CheckGateway(r.Context()); err != nil {
		_, gw = classify(err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"busy":    s.engine.Busy(),
		"clients": s.hub.ClientCount(),
		"gateway": gw,
	})
}
