package handler

import (
	"log/slog"
	"net/http"

	"prdbuilder/internal/domain/services"
	"prdbuilder/internal/httputil"
	"prdbuilder/internal/service/builder"
)

// PRDHandler handles PRD HTTP requests
type PRDHandler struct {
	prdService services.PRDService
	sessions   *builder.Manager
	logger     *slog.Logger
}

// NewPRDHandler creates a new PRD handler
func NewPRDHandler(prdService services.PRDService, sessions *builder.Manager, logger *slog.Logger) *PRDHandler {
	return &PRDHandler{
		prdService: prdService,
		sessions:   sessions,
		logger:     logger,
	}
}

// ListPRDs lists the user's PRDs
// GET /api/prds
func (h *PRDHandler) ListPRDs(w http.ResponseWriter, r *http.Request) {
	docs, err := h.prdService.ListPRDs(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// CreatePRD creates a new PRD
// POST /api/prds
func (h *PRDHandler) CreatePRD(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePRDRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = httputil.GetUserID(r)

	doc, err := h.prdService.CreatePRD(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// GetPRD returns a PRD as last persisted
// GET /api/prds/{id}
func (h *PRDHandler) GetPRD(w http.ResponseWriter, r *http.Request) {
	doc, err := h.prdService.GetPRD(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeletePRD deletes a PRD, discarding its editing session if one is open
// DELETE /api/prds/{id}
func (h *PRDHandler) DeletePRD(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	// Usually there is no open session
	_ = h.sessions.Close(userID, id)

	if err := h.prdService.DeletePRD(r.Context(), userID, id); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("prd deleted via api", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
