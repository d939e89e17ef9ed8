package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/verdict/internal/domain/model"
)

// MemoryStore keeps everything in maps. Values are deep-copied on the way in
// and out so callers never alias stored state.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]model.Assignment
	records     map[string]model.Record
	events      map[string][]model.LifecycleEvent
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[string]model.Assignment),
		records:     make(map[string]model.Record),
		events:      make(map[string][]model.LifecycleEvent),
	}
}

func (s *MemoryStore) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		err = wrap(BackendMemory, "get_assignment", err)
		observe(BackendMemory, "get_assignment", start, err)
		return model.Assignment{}, err
	}
	s.mu.RLock()
	a, ok := s.assignments[id]
	s.mu.RUnlock()
	observe(BackendMemory, "get_assignment", start, nil)
	if !ok {
		return model.Assignment{}, ErrNotFound
	}
	return cloneAssignment(a), nil
}

func (s *MemoryStore) PutAssignment(ctx context.Context, a model.Assignment) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		err = wrap(BackendMemory, "put_assignment", err)
		observe(BackendMemory, "put_assignment", start, err)
		return err
	}
	s.mu.Lock()
	s.assignments[a.ID] = cloneAssignment(a)
	s.mu.Unlock()
	observe(BackendMemory, "put_assignment", start, nil)
	return nil
}

func (s *MemoryStore) ListAssignments(ctx context.Context, f ListFilter) ([]model.Assignment, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		err = wrap(BackendMemory, "list_assignments", err)
		observe(BackendMemory, "list_assignments", start, err)
		return nil, err
	}
	s.mu.RLock()
	out := make([]model.Assignment, 0, len(s.assignments))
	for id, a := range s.assignments {
		state := model.NotStarted
		if r, ok := s.records[id]; ok {
			state = r.State
		}
		if matches(f, a, state) {
			out = append(out, cloneAssignment(a))
		}
	}
	s.mu.RUnlock()
	sortAssignments(out)
	observe(BackendMemory, "list_assignments", start, nil)
	return out, nil
}

func (s *MemoryStore) LoadRecord(ctx context.Context, assignmentID string) (model.Record, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		err = wrap(BackendMemory, "load_record", err)
		observe(BackendMemory, "load_record", start, err)
		return model.Record{}, err
	}
	s.mu.RLock()
	r, ok := s.records[assignmentID]
	s.mu.RUnlock()
	observe(BackendMemory, "load_record", start, nil)
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) SaveRecord(ctx context.Context, r model.Record) error {
	return s.putRecord(ctx, "save_record", r)
}

func (s *MemoryStore) SubmitRecord(ctx context.Context, r model.Record) error {
	return s.putRecord(ctx, "submit_record", r)
}

func (s *MemoryStore) putRecord(ctx context.Context, op string, r model.Record) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		err = wrap(BackendMemory, op, err)
		observe(BackendMemory, op, start, err)
		return err
	}
	s.mu.Lock()
	s.records[r.AssignmentID] = r.Clone()
	s.mu.Unlock()
	observe(BackendMemory, op, start, nil)
	return nil
}

func (s *MemoryStore) Append(ctx context.Context, ev model.LifecycleEvent) error {
	if err := ctx.Err(); err != nil {
		return wrap(BackendMemory, "append_event", err)
	}
	s.mu.Lock()
	s.events[ev.AssignmentID] = append(s.events[ev.AssignmentID], ev)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) History(ctx context.Context, assignmentID string) ([]model.LifecycleEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap(BackendMemory, "history", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.LifecycleEvent{}, s.events[assignmentID]...), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cloneAssignment(a model.Assignment) model.Assignment {
	a.Subject = a.Subject.Clone()
	return a
}

func sortAssignments(list []model.Assignment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
