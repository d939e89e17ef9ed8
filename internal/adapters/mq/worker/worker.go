package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/verdict/internal/adapters/mq/queue"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount   = 2
	defaultAppendTimeout = 5 * time.Second
	poolShutdownTimeout  = 30 * time.Second
	partitionBuffer      = 64
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Appender writes an event to durable history.
type Appender interface {
	Append(ctx context.Context, ev Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker appends each dequeued event to the log.
type InMemoryWorker struct {
	queue         Queue
	appender      Appender
	name          string
	appendTimeout time.Duration

	processed atomic.Int64
	failed    atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, appender Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         q,
		appender:      appender,
		name:          "worker",
		appendTimeout: defaultAppendTimeout,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error recording lifecycle event",
					logger.AssignmentID(event.AssignmentID),
					logger.String("event_id", event.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker without waiting for the queue to drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed is the number of events written successfully.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed is the number of events that could not be written.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	actx, cancel := context.WithTimeout(ctx, w.appendTimeout)
	defer cancel()

	if err := w.appender.Append(actx, event); err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		return fmt.Errorf("append event %s: %w", event.ID, err)
	}
	w.processed.Add(1)
	w.logger.Debug(ctx, "lifecycle event recorded",
		logger.AssignmentID(event.AssignmentID),
		logger.String("transition", string(event.Transition)),
	)
	return nil
}

// Pool manages multiple workers. Events are partitioned by assignment so
// one assignment's history is always appended by the same worker, in the
// order it was enqueued.
type Pool struct {
	workers    []*InMemoryWorker
	partitions []*partition
	queue      Queue
	stop       chan struct{}
	stopOnce   sync.Once
	logger     logger.Logger
}

// partition feeds a single worker.
type partition struct {
	events chan Event
}

func (p *partition) Dequeue(context.Context) <-chan Event { return p.events }

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, appender Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		partitions: make([]*partition, workerCount),
		queue:      q,
		stop:       make(chan struct{}),
		logger:     logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.partitions[i] = &partition{events: make(chan Event, partitionBuffer)}
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(pool.partitions[i], appender, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// partitionFor maps an assignment to its worker.
func (p *Pool) partitionFor(assignmentID string) *partition {
	return p.partitions[xxhash.Sum64String(assignmentID)%uint64(len(p.partitions))]
}

// dispatch moves events from the shared queue to their partitions until the
// queue is drained or the pool is stopped.
func (p *Pool) dispatch(ctx context.Context) {
	defer func() {
		for _, part := range p.partitions {
			close(part.events)
		}
	}()
	for ev := range p.queue.Dequeue(ctx) {
		select {
		case p.partitionFor(ev.AssignmentID).events <- ev:
		case <-p.stop:
			return
		}
	}
}

// Start starts the dispatcher and all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	go p.dispatch(ctx)
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed sums successful writes across workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed sums failed writes across workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue, lets workers drain what is already queued and
// stops any that are still busy when ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.stopOnce.Do(func() { close(p.stop) })
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			stopCtx, stop := context.WithTimeout(context.Background(), worker.appendTimeout)
			_ = worker.Shutdown(stopCtx)
			stop()
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
