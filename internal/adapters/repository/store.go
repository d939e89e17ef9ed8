// Package repository persists assignments, assessment records and their
// lifecycle history. Backends: memory, sqlite, postgres and redis.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/metrics"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// ListFilter narrows ListAssignments. Zero fields match everything.
type ListFilter struct {
	AssessorID string
	State      model.State
}

// Store provides read/write access to assignments and their records.
type Store interface {
	// GetAssignment returns ErrNotFound for an unknown id.
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)
	PutAssignment(ctx context.Context, a model.Assignment) error
	// ListAssignments returns matches ordered by creation time, then id. A
	// State filter matches NotStarted for assignments never saved.
	ListAssignments(ctx context.Context, f ListFilter) ([]model.Assignment, error)

	// LoadRecord returns ErrNotFound when the assignment was never saved.
	LoadRecord(ctx context.Context, assignmentID string) (model.Record, error)
	SaveRecord(ctx context.Context, r model.Record) error
	SubmitRecord(ctx context.Context, r model.Record) error

	Close() error
}

// EventLog is an append-only history of lifecycle transitions.
type EventLog interface {
	Append(ctx context.Context, ev model.LifecycleEvent) error
	// History returns events for one assignment, oldest first.
	History(ctx context.Context, assignmentID string) ([]model.LifecycleEvent, error)
}

// Repository is a Store that also keeps the event log.
type Repository interface {
	Store
	EventLog
}

// Settings selects and configures a backend.
type Settings struct {
	Driver        string
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the backend named by s.Driver.
func Open(ctx context.Context, s Settings) (Repository, error) {
	switch strings.ToLower(s.Driver) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, BackendPostgres:
		return OpenSQL(ctx, Driver(strings.ToLower(s.Driver)), s.DSN)
	case BackendRedis:
		return OpenRedis(ctx, s.RedisAddr, WithPassword(s.RedisPassword), WithDB(s.RedisDB))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, s.Driver)
	}
}

// observe records latency and failures of one backend call. ErrNotFound is
// an answer, not a failure.
func observe(backend, op string, start time.Time, err error) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !isNotFound(err) {
		metrics.RecordStoreError(backend, op)
	}
}

func matches(f ListFilter, a model.Assignment, state model.State) bool {
	if f.AssessorID != "" && a.AssessorID != f.AssessorID {
		return false
	}
	if f.State != "" && state != f.State {
		return false
	}
	return true
}
