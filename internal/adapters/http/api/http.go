// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/okian/verdict/internal/adapters/http/site"
	"github.com/okian/verdict/internal/adapters/http/swagger"
	"github.com/okian/verdict/internal/adapters/repository"
	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/lifecycle"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	CreateAssignment(ctx context.Context, req service.CreateRequest) (model.Assignment, error)
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)
	ListAssignments(ctx context.Context, f repository.ListFilter) ([]model.Assignment, error)

	Record(ctx context.Context, id string) (model.Record, error)
	Save(ctx context.Context, id string, d model.Draft) (model.Record, error)
	Submit(ctx context.Context, id string, d *model.Draft) (model.Record, error)
	Reopen(ctx context.Context, id string) (model.Record, error)
	History(ctx context.Context, id string) ([]model.LifecycleEvent, error)

	Evaluate(ctx context.Context, kind criteria.Kind, v scoring.Vector) (service.Evaluation, error)
	Catalog(kind criteria.Kind) (*criteria.Catalog, error)

	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	catalogHandler    *CatalogHandler
	assignmentHandler *AssignmentHandler

	rateLimit    float64
	rateBurst    int
	corsOrigins  []string
	maxBodyBytes int64
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.catalogHandler = NewCatalogHandler(deps, s.logger)
	s.assignmentHandler = NewAssignmentHandler(deps, s.logger)
	return s
}

// Routes builds the router with every API route and middleware attached.
func (s *Server) Routes(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(RateLimit(s.rateLimit, s.rateBurst))
	r.Use(BodyLimit(s.maxBodyBytes))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/catalog/{kind}", MetricsMiddleware(s.catalogHandler.HandleGetCatalog, "catalog"))
	r.Post("/evaluate", MetricsMiddleware(s.catalogHandler.HandleEvaluate, "evaluate"))

	r.Route("/assignments", func(r chi.Router) {
		h := s.assignmentHandler
		r.Post("/", MetricsMiddleware(h.HandleCreate, "assignments_create"))
		r.Get("/", MetricsMiddleware(h.HandleList, "assignments_list"))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(h.HandleGet, "assignment"))
			r.Get("/record", MetricsMiddleware(h.HandleGetRecord, "record"))
			r.Put("/record", MetricsMiddleware(h.HandleSave, "save"))
			r.Post("/submit", MetricsMiddleware(h.HandleSubmit, "submit"))
			r.Post("/reopen", MetricsMiddleware(h.HandleReopen, "reopen"))
			r.Get("/history", MetricsMiddleware(h.HandleHistory, "history"))
		})
	})

	swagger.Register(ctx, r)
	site.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Transition string `json:"transition,omitempty"`
	State      string `json:"state,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps the domain error taxonomy onto HTTP statuses.
func writeServiceError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	var (
		verr *scoring.ValidationError
		viol *lifecycle.Violation
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation_error", Message: err.Error(), Field: verr.Field})
	case errors.Is(err, scoring.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err)
	case errors.As(err, &viol):
		writeJSON(w, http.StatusConflict, errorResponse{
			Code:       "lifecycle_violation",
			Message:    err.Error(),
			Transition: string(viol.Transition),
			State:      string(viol.State),
		})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrPersistence), errors.Is(err, context.DeadlineExceeded):
		log.Error(ctx, "persistence failure", logger.String("request_id", RequestIDFromContext(ctx)), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "persistence_error", err)
	default:
		log.Error(ctx, "unexpected error", logger.String("request_id", RequestIDFromContext(ctx)), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", errors.New(http.StatusText(http.StatusInternalServerError)))
	}
}

// decodeJSON reads a JSON body into v. An empty body is reported as
// errEmptyBody so callers can treat it as optional.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return WrapKind("api.decode", ErrBadRequest, err)
	}
	return nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err)
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", err)
}
