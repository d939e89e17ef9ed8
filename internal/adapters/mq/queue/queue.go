// Package queue carries lifecycle events from the service to the workers that
// record them. Enqueue never blocks: a full queue drops the event.
package queue

import (
	"context"
	"sync"

	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Event is the payload flowing through the queue.
type Event = model.LifecycleEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. It returns ErrFull or ErrClosed instead of
	// blocking.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns a channel that receives events until the queue is
	// closed and drained or ctx is done.
	Dequeue(ctx context.Context) <-chan Event

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueDrop("context_cancelled")
		return err
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.events))
		return nil
	default:
		metrics.RecordQueueDrop("full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive events as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.events:
				if !ok {
					return
				}
				select {
				case out <- event:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.events))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting events. Events already queued are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
