package handler

import (
	"net/http"

	"prdbuilder/internal/httputil"
	"prdbuilder/internal/service/completion"
)

// SectionsHandler serves the section catalog
type SectionsHandler struct {
	catalog *completion.Catalog
}

// NewSectionsHandler creates a new sections handler
func NewSectionsHandler(catalog *completion.Catalog) *SectionsHandler {
	return &SectionsHandler{catalog: catalog}
}

// ListSections returns the section definitions in document order
// GET /api/sections
func (h *SectionsHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.catalog.Definitions())
}
