package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/pkg/logger"
)

// CatalogHandler serves the criteria catalogs and the scoring preview.
type CatalogHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(deps Dependencies, l logger.Logger) *CatalogHandler {
	return &CatalogHandler{deps: deps, logger: l}
}

type catalogResponse struct {
	Kind     criteria.Kind        `json:"kind"`
	MaxTotal float64              `json:"max_total"`
	Criteria []criteria.Criterion `json:"criteria"`
}

// HandleGetCatalog handles GET /catalog/{kind}.
func (h *CatalogHandler) HandleGetCatalog(w http.ResponseWriter, r *http.Request) {
	kind := criteria.Kind(chi.URLParam(r, "kind"))
	c, err := h.deps.Catalog(kind)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{Kind: c.Kind(), MaxTotal: c.MaxTotal(), Criteria: c.Criteria()})
}

type evaluateRequest struct {
	Kind   criteria.Kind  `json:"kind"`
	Scores scoring.Vector `json:"scores"`
}

// HandleEvaluate handles POST /evaluate. Nothing is persisted.
func (h *CatalogHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	ev, err := h.deps.Evaluate(r.Context(), req.Kind, req.Scores)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
