package service

import (
	"time"

	"github.com/okian/verdict/internal/adapters/repository"
	"github.com/okian/verdict/internal/domain/assessment"
	"github.com/okian/verdict/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRepository sets the persistence backend. Defaults to an in-memory store.
func WithRepository(repo repository.Repository) Option {
	return func(s *Service) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// WithBuilder sets the record builder, which also fixes the catalogs, the
// rule tables and the clock.
func WithBuilder(b *assessment.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithWorkerCount sets the number of event log workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the lifecycle event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStoreTimeout bounds every persistence call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces uuid generation for assignments and events.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}
