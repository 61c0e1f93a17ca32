package handler

import "net/http"

// Handlers groups the API handlers for route registration
type Handlers struct {
	PRD      *PRDHandler
	Session  *SessionHandler
	Sections *SectionsHandler
	Health   *HealthHandler
}

// Register adds every API route to mux
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health.HealthCheck)

	mux.HandleFunc("GET /api/sections", h.Sections.ListSections)

	mux.HandleFunc("GET /api/prds", h.PRD.ListPRDs)
	mux.HandleFunc("POST /api/prds", h.PRD.CreatePRD)
	mux.HandleFunc("GET /api/prds/{id}", h.PRD.GetPRD)
	mux.HandleFunc("DELETE /api/prds/{id}", h.PRD.DeletePRD)

	mux.HandleFunc("POST /api/prds/{id}/session", h.Session.OpenSession)
	mux.HandleFunc("GET /api/prds/{id}/session", h.Session.GetSession)
	mux.HandleFunc("DELETE /api/prds/{id}/session", h.Session.CloseSession)
	mux.HandleFunc("POST /api/prds/{id}/session/updates", h.Session.ApplyUpdates)
	mux.HandleFunc("PUT /api/prds/{id}/session/content", h.Session.ReplaceContent)
	mux.HandleFunc("POST /api/prds/{id}/session/save", h.Session.TriggerSave)
	mux.HandleFunc("DELETE /api/prds/{id}/session/error", h.Session.ClearSaveError)
	mux.HandleFunc("PUT /api/prds/{id}/session/autosave", h.Session.SetAutoSave)
	mux.HandleFunc("GET /api/prds/{id}/session/validation", h.Session.GetValidation)
}
