// Package worker runs the single writer that executes queued commands.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/levelrank/internal/adapters/mq/queue"
	"github.com/okian/levelrank/pkg/logger"
	"github.com/okian/levelrank/pkg/metrics"
)

// Queue defines how workers receive commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *queue.Command
}

// Worker executes commands one at a time.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue drains after Close.
	Run(ctx context.Context)

	// Shutdown closes the queue, lets the worker finish what is already queued,
	// and waits for it to stop. If ctx expires first the worker is stopped
	// and the remaining commands finish with queue.ErrStopped.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for an in-process queue.
type InMemoryWorker struct {
	queue Queue
	name  string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	cmds := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			w.abandon(cmds)
			return
		case <-w.shutdown:
			w.abandon(cmds)
			return
		case c, ok := <-cmds:
			if !ok {
				return
			}
			w.execute(c)
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	if closer, ok := w.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			w.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.shutdownOnce.Do(func() { close(w.shutdown) })
		<-w.done
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// abandon finishes whatever is still deliverable without running it.
func (w *InMemoryWorker) abandon(cmds <-chan *queue.Command) {
	for {
		select {
		case c, ok := <-cmds:
			if !ok {
				return
			}
			c.Finish(queue.ErrStopped)
		default:
			return
		}
	}
}

// execute runs a single command and publishes its result. Commands whose
// caller already gave up are skipped so no state changes behind their back.
func (w *InMemoryWorker) execute(c *queue.Command) {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("worker", "caller_gone")
		c.Finish(err)
		return
	}

	start := time.Now()
	err := w.run(ctx, c)
	metrics.RecordCommandLatency(c.Name, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordCommandError(c.Name)
		w.logger.Debug(ctx, "command failed",
			logger.String("command", c.Name),
			logger.Error(err),
		)
	}
	c.Finish(err)
}

// errPanic wraps a recovered panic so one bad command cannot kill the writer.
var errPanic = errors.New("command panicked")

func (w *InMemoryWorker) run(ctx context.Context, c *queue.Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("worker", "panic")
			metrics.RecordErrorByType("panic", "critical")
			w.logger.Error(ctx, "command panicked",
				logger.String("command", c.Name),
				logger.Any("panic", r),
			)
			err = fmt.Errorf("%w: %s: %v", errPanic, c.Name, r)
		}
	}()
	return c.Run(ctx)
}
