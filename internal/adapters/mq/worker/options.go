// Package worker drains lifecycle events from the queue into the event log.
package worker

import (
	"time"

	"github.com/okian/verdict/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithAppendTimeout bounds each event log write.
func WithAppendTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.appendTimeout = d
		}
	}
}
