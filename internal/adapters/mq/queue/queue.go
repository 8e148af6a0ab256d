// Package queue defines the contract for enqueuing and consuming write commands.
//
// Every state-changing operation becomes a Command and is consumed by a single
// writer, so load-mutate-save cycles never interleave inside one process.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/levelrank/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Command is one unit of work for the writer. Done receives exactly one
// result once the command ran or was skipped.
type Command struct {
	Name       string
	Ctx        context.Context
	Run        func(ctx context.Context) error
	EnqueuedAt time.Time

	done chan error
}

// NewCommand builds a command bound to the caller's context.
func NewCommand(ctx context.Context, name string, run func(ctx context.Context) error) *Command {
	return &Command{
		Name:       name,
		Ctx:        ctx,
		Run:        run,
		EnqueuedAt: time.Now(),
		done:       make(chan error, 1),
	}
}

// Done returns the channel carrying the command result.
func (c *Command) Done() <-chan error {
	return c.done
}

// Finish publishes the result. Only the first call has an effect.
func (c *Command) Finish(err error) {
	select {
	case c.done <- err:
	default:
	}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command to the queue.
	// Returns false if the queue is full or closed and the command was not enqueued.
	Enqueue(ctx context.Context, c *Command) bool

	// Dequeue returns a channel that will receive commands as they become available.
	// The channel will be closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan *Command

	// Len returns the current number of queued commands.
	Len(ctx context.Context) int

	// Close stops accepting commands. Commands already queued are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan *Command
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.commands = make(chan *Command, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a command to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c *Command) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.commands <- c:
		metrics.RecordQueueEnqueue()
		q.publishSize()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive commands as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan *Command {
	out := make(chan *Command)
	go func() {
		defer close(out)
		for c := range q.commands {
			select {
			case out <- c:
				metrics.RecordQueueDequeue()
				q.publishSize()
			case <-ctx.Done():
				c.Finish(ErrStopped)
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued commands.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.publishSize()
}

func (q *InMemoryQueue) publishSize() int {
	size := len(q.commands)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops accepting commands.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.commands)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
