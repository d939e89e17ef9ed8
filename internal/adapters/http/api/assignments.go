package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/verdict/internal/adapters/repository"
	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
)

// AssignmentHandler serves assignments, their records and lifecycle.
type AssignmentHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(deps Dependencies, l logger.Logger) *AssignmentHandler {
	return &AssignmentHandler{deps: deps, logger: l}
}

// HandleCreate handles POST /assignments.
func (h *AssignmentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	a, err := h.deps.CreateAssignment(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	w.Header().Set("Location", "/assignments/"+a.ID)
	writeJSON(w, http.StatusCreated, a)
}

// HandleList handles GET /assignments?assessor_id=&state=.
func (h *AssignmentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.deps.ListAssignments(r.Context(), repository.ListFilter{
		AssessorID: q.Get("assessor_id"),
		State:      model.State(q.Get("state")),
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /assignments/{id}.
func (h *AssignmentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.GetAssignment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleGetRecord handles GET /assignments/{id}/record.
func (h *AssignmentHandler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Record(r.Context(), chi.URLParam(r, "id"))
	h.writeRecord(w, r, rec, err)
}

// HandleSave handles PUT /assignments/{id}/record.
func (h *AssignmentHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var d model.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeDecodeError(w, err)
		return
	}
	rec, err := h.deps.Save(r.Context(), chi.URLParam(r, "id"), d)
	h.writeRecord(w, r, rec, err)
}

// HandleSubmit handles POST /assignments/{id}/submit. The draft body is
// optional; without one the stored draft is submitted.
func (h *AssignmentHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var d *model.Draft
	var body model.Draft
	switch err := decodeJSON(r, &body); {
	case err == nil:
		d = &body
	case errors.Is(err, errEmptyBody):
	default:
		writeDecodeError(w, err)
		return
	}
	rec, err := h.deps.Submit(r.Context(), chi.URLParam(r, "id"), d)
	h.writeRecord(w, r, rec, err)
}

// HandleReopen handles POST /assignments/{id}/reopen.
func (h *AssignmentHandler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	rec, err := h.deps.Reopen(r.Context(), chi.URLParam(r, "id"))
	h.writeRecord(w, r, rec, err)
}

// HandleHistory handles GET /assignments/{id}/history.
func (h *AssignmentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *AssignmentHandler) writeRecord(w http.ResponseWriter, r *http.Request, rec model.Record, err error) {
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
