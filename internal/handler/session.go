package handler

import (
	"log/slog"
	"net/http"

	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/httputil"
	"prdbuilder/internal/service/builder"
)

// SessionHandler exposes PRD editing sessions over HTTP
type SessionHandler struct {
	sessions *builder.Manager
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *builder.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// ApplyUpdatesRequest is a batch of section updates
type ApplyUpdatesRequest struct {
	Updates []prd.SectionUpdate `json:"updates"`
}

// ReplaceContentRequest replaces the whole document content
type ReplaceContentRequest struct {
	Content prd.DocumentContent `json:"content"`
}

// SetAutoSaveRequest toggles debounced saving
type SetAutoSaveRequest struct {
	Enabled *bool `json:"enabled"`
}

// OpenSession opens the editing session of a PRD, or returns the one already open
// POST /api/prds/{id}/session
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Open(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondState(w, c, http.StatusOK)
}

// GetSession returns the session state
// GET /api/prds/{id}/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(*builder.Coordinator) error { return nil })
}

// CloseSession tears the session down. Unsaved changes are discarded.
// DELETE /api/prds/{id}/session
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyUpdates applies a batch of section updates
// POST /api/prds/{id}/session/updates
func (h *SessionHandler) ApplyUpdates(w http.ResponseWriter, r *http.Request) {
	var req ApplyUpdatesRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.withSession(w, r, http.StatusOK, func(c *builder.Coordinator) error {
		return c.ApplySectionUpdates(req.Updates)
	})
}

// ReplaceContent replaces the session content without highlighting or saving it
// PUT /api/prds/{id}/session/content
func (h *SessionHandler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	var req ReplaceContentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Content == nil {
		req.Content = prd.DocumentContent{}
	}

	h.withSession(w, r, http.StatusOK, func(c *builder.Coordinator) error {
		return c.ReplaceContent(req.Content)
	})
}

// TriggerSave starts a save immediately. It completes in the background;
// the session state reports the outcome.
// POST /api/prds/{id}/session/save
func (h *SessionHandler) TriggerSave(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusAccepted, func(c *builder.Coordinator) error {
		return c.TriggerSave()
	})
}

// ClearSaveError dismisses a save error
// DELETE /api/prds/{id}/session/error
func (h *SessionHandler) ClearSaveError(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, http.StatusOK, func(c *builder.Coordinator) error {
		return c.ClearSaveError()
	})
}

// SetAutoSave enables or disables debounced saving
// PUT /api/prds/{id}/session/autosave
func (h *SessionHandler) SetAutoSave(w http.ResponseWriter, r *http.Request) {
	var req SetAutoSaveRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		httputil.RespondError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.withSession(w, r, http.StatusOK, func(c *builder.Coordinator) error {
		return c.SetAutoSaveEnabled(*req.Enabled)
	})
}

// GetValidation returns the completion report of the current content
// GET /api/prds/{id}/session/validation
func (h *SessionHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Get(httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	report, err := c.CompletionValidation()
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

// withSession runs fn on the caller's session and responds with the resulting state
func (h *SessionHandler) withSession(w http.ResponseWriter, r *http.Request, status int, fn func(c *builder.Coordinator) error) {
	c, err := h.sessions.Get(httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	if err := fn(c); err != nil {
		handleError(w, err)
		return
	}
	respondState(w, c, status)
}

func respondState(w http.ResponseWriter, c *builder.Coordinator, status int) {
	state, err := c.State()
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, status, state)
}
