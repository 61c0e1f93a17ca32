package handler

import (
	"net/http"

	"prdbuilder/internal/httputil"
	"prdbuilder/internal/service/builder"
)

// HealthHandler reports liveness
type HealthHandler struct {
	sessions *builder.Manager
	storage  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(sessions *builder.Manager, storage string) *HealthHandler {
	return &HealthHandler{sessions: sessions, storage: storage}
}

// HealthCheck reports that the server is up
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"storage":       h.storage,
		"open_sessions": h.sessions.Len(),
	})
}
