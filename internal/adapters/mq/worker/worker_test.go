package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/levelrank/internal/adapters/mq/queue"
	worker "github.com/okian/levelrank/internal/adapters/mq/worker"
	logging "github.com/okian/levelrank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func wait(t *testing.T, c *queue.Command) error {
	t.Helper()
	select {
	case err := <-c.Done():
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("command %s never finished", c.Name)
		return nil
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a running writer", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		w := worker.NewInMemoryWorker(q, worker.WithName("test-writer"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a command succeeds", func() {
			ran := false
			c := queue.NewCommand(context.Background(), "ok", func(context.Context) error {
				ran = true
				return nil
			})
			convey.So(q.Enqueue(ctx, c), convey.ShouldBeTrue)

			convey.Convey("Then its result is published", func() {
				convey.So(wait(t, c), convey.ShouldBeNil)
				convey.So(ran, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a command fails", func() {
			boom := errors.New("boom")
			c := queue.NewCommand(context.Background(), "fail", func(context.Context) error { return boom })
			q.Enqueue(ctx, c)

			convey.Convey("Then the error reaches the caller", func() {
				convey.So(errors.Is(wait(t, c), boom), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a command panics", func() {
			c := queue.NewCommand(context.Background(), "panic", func(context.Context) error { panic("bad") })
			q.Enqueue(ctx, c)
			err := wait(t, c)

			convey.Convey("Then the writer survives and reports an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				next := queue.NewCommand(context.Background(), "after", func(context.Context) error { return nil })
				q.Enqueue(ctx, next)
				convey.So(wait(t, next), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the caller already cancelled", func() {
			callerCtx, callerCancel := context.WithCancel(context.Background())
			callerCancel()
			ran := false
			c := queue.NewCommand(callerCtx, "stale", func(context.Context) error {
				ran = true
				return nil
			})
			q.Enqueue(ctx, c)

			convey.Convey("Then the command is skipped", func() {
				convey.So(errors.Is(wait(t, c), context.Canceled), convey.ShouldBeTrue)
				convey.So(ran, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When many goroutines enqueue at once", func() {
			var (
				mu      sync.Mutex
				active  int
				overlap bool
				wg      sync.WaitGroup
				cmds    []*queue.Command
			)
			for i := 0; i < 10; i++ {
				c := queue.NewCommand(context.Background(), "concurrent", func(context.Context) error {
					mu.Lock()
					active++
					if active > 1 {
						overlap = true
					}
					mu.Unlock()
					time.Sleep(time.Millisecond)
					mu.Lock()
					active--
					mu.Unlock()
					return nil
				})
				cmds = append(cmds, c)
				wg.Add(1)
				go func() {
					defer wg.Done()
					q.Enqueue(ctx, c)
				}()
			}
			wg.Wait()
			for _, c := range cmds {
				_ = wait(t, c)
			}

			convey.Convey("Then commands never overlap", func() {
				convey.So(overlap, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When shutting down", func() {
			c := queue.NewCommand(context.Background(), "last", func(context.Context) error { return nil })
			q.Enqueue(ctx, c)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then queued work is drained and new work refused", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(wait(t, c), convey.ShouldBeNil)
				convey.So(q.Enqueue(ctx, queue.NewCommand(ctx, "late", nil)), convey.ShouldBeFalse)
			})
		})
	})
}

func TestWorkerShutdownTimeout(t *testing.T) {
	convey.Convey("Given a writer stuck on a slow command", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		w := worker.NewInMemoryWorker(q)
		go w.Run(context.Background())

		release := make(chan struct{})
		slow := queue.NewCommand(context.Background(), "slow", func(context.Context) error {
			<-release
			return nil
		})
		q.Enqueue(context.Background(), slow)
		time.Sleep(20 * time.Millisecond)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		go func() {
			time.Sleep(50 * time.Millisecond)
			close(release)
		}()
		err := w.Shutdown(shutdownCtx)

		convey.Convey("Then shutdown reports the timeout after the writer stops", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(wait(t, slow), convey.ShouldBeNil)
			select {
			case <-w.Done():
			default:
				t.Fatal("expected the writer to have stopped")
			}
		})
	})
}
