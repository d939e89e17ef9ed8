// Package service orchestrates assessments: it validates input, runs the
// lifecycle guard, persists the result and publishes lifecycle events.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/verdict/internal/adapters/mq/queue"
	workerpool "github.com/okian/verdict/internal/adapters/mq/worker"
	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/assessment"
	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/insight"
	"github.com/okian/verdict/internal/domain/lifecycle"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

const (
	defaultWorkerCount  = 2
	defaultQueueSize    = 1024
	defaultStoreTimeout = 5 * time.Second
	stopTimeout         = 10 * time.Second
)

// Service implements the API dependencies for assessments.
type Service struct {
	mu sync.RWMutex

	repo    repository.Repository
	builder *assessment.Builder
	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool
	locks   *keyedMutex

	workerCount  int
	queueSize    int
	storeTimeout time.Duration
	newID        func() string

	started bool
	logger  logger.Logger
}

// New constructs a Service. It serves requests immediately; Start only
// launches the workers that drain lifecycle events into the event log.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  defaultWorkerCount,
		queueSize:    defaultQueueSize,
		storeTimeout: defaultStoreTimeout,
		newID:        uuid.NewString,
		locks:        newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.repo == nil {
		s.repo = repository.NewMemoryStore()
	}
	if s.builder == nil {
		s.builder = assessment.NewBuilder()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	return s
}

// Start launches the event log workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.queue.IsClosed() {
		s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	}
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.repo, workerpool.WithAppendTimeout(s.storeTimeout))
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true

	s.logger.Info(ctx, "assessment service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
	)
	return nil
}

// Stop drains pending events and closes the repository. A stopped service
// must not be restarted against a closed SQL or redis backend.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "event workers did not drain", logger.Error(err))
	}
	if err := s.repo.Close(); err != nil {
		s.logger.Error(ctx, "closing repository", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "assessment service stopped")
}

// CreateRequest describes a new assignment.
type CreateRequest struct {
	AssessorID string        `json:"assessor_id"`
	CaseStudy  string        `json:"case_study"`
	Subject    model.Subject `json:"subject"`
}

// CreateAssignment registers a new unit of work.
func (s *Service) CreateAssignment(ctx context.Context, req CreateRequest) (model.Assignment, error) {
	if strings.TrimSpace(req.AssessorID) == "" {
		return model.Assignment{}, scoring.Invalid("assessor_id", "must not be empty")
	}
	if err := req.Subject.Validate(); err != nil {
		return model.Assignment{}, err
	}
	a := model.Assignment{
		ID:         s.newID(),
		AssessorID: req.AssessorID,
		CaseStudy:  req.CaseStudy,
		Subject:    req.Subject.Clone(),
		CreatedAt:  s.builder.Now(),
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.repo.PutAssignment(sctx, a); err != nil {
		s.logger.Error(ctx, "create assignment failed", logger.AssignmentID(a.ID), logger.Error(err))
		return model.Assignment{}, err
	}
	metrics.RecordAssignmentCreated()
	s.logger.Info(ctx, "assignment created",
		logger.AssignmentID(a.ID),
		logger.String("assessor_id", a.AssessorID),
		logger.String("kind", string(a.Subject.Kind)),
	)
	return a, nil
}

// GetAssignment returns one assignment.
func (s *Service) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	a, err := s.repo.GetAssignment(sctx, id)
	if err != nil {
		return model.Assignment{}, notFound("assignment", id, err)
	}
	return a, nil
}

// ListAssignments returns assignments matching f.
func (s *Service) ListAssignments(ctx context.Context, f repository.ListFilter) ([]model.Assignment, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, scoring.Invalid("state", fmt.Sprintf("unknown state %q", f.State))
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.ListAssignments(sctx, f)
}

// Record returns the current record of an assignment, or its NotStarted view
// when nothing was saved yet. Derived fields are recomputed from the scores.
func (s *Service) Record(ctx context.Context, id string) (model.Record, error) {
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	return s.current(ctx, a)
}

// Save stores a draft.
func (s *Service) Save(ctx context.Context, id string, d model.Draft) (model.Record, error) {
	return s.transition(ctx, id, model.TransitionSave, func(a model.Assignment, cur model.Record, catalog *criteria.Catalog) (model.Record, error) {
		if err := validateDraft(d, catalog); err != nil {
			return cur, err
		}
		return lifecycle.Save(cur, s.builder.Build(d, catalog), s.builder.Now())
	})
}

// Submit freezes the record. A nil draft submits what is stored.
func (s *Service) Submit(ctx context.Context, id string, d *model.Draft) (model.Record, error) {
	return s.transition(ctx, id, model.TransitionSubmit, func(a model.Assignment, cur model.Record, catalog *criteria.Catalog) (model.Record, error) {
		draft := cur.Draft()
		if d != nil {
			if err := validateDraft(*d, catalog); err != nil {
				return cur, err
			}
			draft = *d
		}
		if a.Subject.Kind == criteria.Group && len(a.Subject.MemberIDs) == 0 {
			return cur, scoring.Invalid("subject.member_ids", "a group needs at least one member before submission")
		}
		return lifecycle.Submit(cur, s.builder.Build(draft, catalog), s.builder.Now())
	})
}

// Reopen returns a submitted record to InProgress.
func (s *Service) Reopen(ctx context.Context, id string) (model.Record, error) {
	return s.transition(ctx, id, model.TransitionReopen, func(_ model.Assignment, cur model.Record, _ *criteria.Catalog) (model.Record, error) {
		return lifecycle.Reopen(cur, s.builder.Now())
	})
}

type stepFunc func(a model.Assignment, current model.Record, catalog *criteria.Catalog) (model.Record, error)

// transition runs one lifecycle step under the assignment's lock. The stored
// record changes only when the repository confirms the write.
func (s *Service) transition(ctx context.Context, id string, tr model.Transition, step stepFunc) (model.Record, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	log := s.logger.With(logger.AssignmentID(id), logger.String("transition", string(tr)))

	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return model.Record{}, err
	}
	catalog, err := s.builder.Catalogs().For(a.Subject.Kind)
	if err != nil {
		return model.Record{}, scoring.Invalid("subject.kind", err.Error())
	}
	cur, err := s.current(ctx, a)
	if err != nil {
		return model.Record{}, err
	}

	next, err := step(a, cur, catalog)
	if err != nil {
		var v *lifecycle.Violation
		if errors.As(err, &v) {
			metrics.RecordTransition(string(tr), "violation")
			metrics.RecordLifecycleViolation(string(v.Transition), string(v.State))
			log.Warn(ctx, "lifecycle violation", logger.String("state", string(v.State)))
		} else {
			metrics.RecordTransition(string(tr), "invalid")
			log.Debug(ctx, "transition rejected", logger.Error(err))
		}
		return model.Record{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if tr == model.TransitionSubmit {
		err = s.repo.SubmitRecord(sctx, next)
	} else {
		err = s.repo.SaveRecord(sctx, next)
	}
	if err != nil {
		metrics.RecordTransition(string(tr), "error")
		log.Error(ctx, "persisting record failed", logger.Error(err))
		return model.Record{}, err
	}

	metrics.RecordTransition(string(tr), "ok")
	if tr == model.TransitionSubmit {
		metrics.RecordBand(next.Band.String())
		metrics.RecordFindings(string(insight.Reinforcing), string(a.Subject.Kind), len(next.Reinforcing))
		metrics.RecordFindings(string(insight.Cautionary), string(a.Subject.Kind), len(next.Cautionary))
	}
	log.Info(ctx, "transition applied",
		logger.String("from", string(cur.State)),
		logger.String("to", string(next.State)),
		logger.Float64("total", next.TotalScore),
		logger.String("band", next.Band.String()),
		logger.Int("revision", int(next.Revision)),
	)
	s.publish(ctx, lifecycle.Event(s.newID(), tr, cur, next))
	return next, nil
}

func (s *Service) current(ctx context.Context, a model.Assignment) (model.Record, error) {
	catalog, err := s.builder.Catalogs().For(a.Subject.Kind)
	if err != nil {
		return model.Record{}, scoring.Invalid("subject.kind", err.Error())
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	r, err := s.repo.LoadRecord(sctx, a.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return s.builder.Initial(a)
	}
	if err != nil {
		return model.Record{}, err
	}
	return s.builder.Recompute(r, catalog), nil
}

// publish hands ev to the event log workers. A full or closed queue drops
// the event; the transition has already been persisted.
func (s *Service) publish(ctx context.Context, ev model.LifecycleEvent) {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if err := q.Enqueue(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn(ctx, "lifecycle event dropped",
			logger.AssignmentID(ev.AssignmentID),
			logger.String("transition", string(ev.Transition)),
			logger.Error(err),
		)
	}
}

// Evaluation is a scoring preview that is never persisted.
type Evaluation struct {
	Kind     criteria.Kind    `json:"kind"`
	Summary  scoring.Summary  `json:"summary"`
	Band     scoring.Band     `json:"performance_band"`
	Complete bool             `json:"complete"`
	Findings insight.Findings `json:"findings"`
}

// Evaluate scores a vector without touching any assignment.
func (s *Service) Evaluate(ctx context.Context, kind criteria.Kind, v scoring.Vector) (Evaluation, error) {
	catalog, err := s.Catalog(kind)
	if err != nil {
		return Evaluation{}, err
	}
	if err := scoring.ValidateVector(v, catalog); err != nil {
		return Evaluation{}, err
	}
	r := s.builder.Build(model.Draft{Scores: v}, catalog)
	metrics.RecordEvaluationPreviewed()
	s.logger.Debug(ctx, "evaluation previewed", logger.String("kind", string(kind)), logger.Float64("total", r.TotalScore))
	return Evaluation{
		Kind:     kind,
		Summary:  scoring.Summary{Total: r.TotalScore, MaxTotal: r.MaxTotal, CompletionPct: r.CompletionPct},
		Band:     r.Band,
		Complete: scoring.IsComplete(v, catalog),
		Findings: insight.Findings{Reinforcing: r.Reinforcing, Cautionary: r.Cautionary},
	}, nil
}

// Catalog returns the criteria for kind.
func (s *Service) Catalog(kind criteria.Kind) (*criteria.Catalog, error) {
	if _, err := criteria.ParseKind(string(kind)); err != nil {
		return nil, scoring.Invalid("kind", err.Error())
	}
	catalog, err := s.builder.Catalogs().For(kind)
	if err != nil {
		return nil, scoring.Invalid("kind", err.Error())
	}
	return catalog, nil
}

// History returns the recorded lifecycle events of an assignment.
func (s *Service) History(ctx context.Context, id string) ([]model.LifecycleEvent, error) {
	if _, err := s.GetAssignment(ctx, id); err != nil {
		return nil, err
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.History(sctx, id)
}

// Stats is a point-in-time view for monitoring.
type Stats struct {
	Started        bool                `json:"started"`
	WorkerCount    int                 `json:"worker_count"`
	QueueCapacity  int                 `json:"queue_capacity"`
	QueueLength    int                 `json:"queue_length"`
	EventsRecorded int64               `json:"events_recorded"`
	EventsFailed   int64               `json:"events_failed"`
	Assignments    int                 `json:"assignments"`
	ByState        map[model.State]int `json:"by_state"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	st := Stats{
		Started:       s.started,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queue.Capacity(),
		QueueLength:   s.queue.Len(),
		ByState:       map[model.State]int{},
	}
	if s.pool != nil {
		st.EventsRecorded = s.pool.Processed()
		st.EventsFailed = s.pool.Failed()
	}
	s.mu.RUnlock()

	for _, state := range []model.State{model.NotStarted, model.InProgress, model.Submitted} {
		list, err := s.ListAssignments(ctx, repository.ListFilter{State: state})
		if err != nil {
			return st, err
		}
		st.ByState[state] = len(list)
		st.Assignments += len(list)
	}
	metrics.UpdateQueueSize(st.QueueLength)
	return st, nil
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func validateDraft(d model.Draft, catalog *criteria.Catalog) error {
	if err := scoring.ValidateVector(d.Scores, catalog); err != nil {
		return err
	}
	for id := range d.Notes {
		if _, ok := catalog.Lookup(id); !ok {
			return scoring.Invalid("notes."+id, "unknown criterion")
		}
	}
	return nil
}

func notFound(what, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %q: %w", what, id, repository.ErrNotFound)
	}
	return err
}
