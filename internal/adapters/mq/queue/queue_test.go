package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func noop(context.Context) error { return nil }

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, NewCommand(ctx, "approve", noop)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	c := <-q.Dequeue(ctx)
	if c.Name != "approve" {
		t.Errorf("expected approve, got %v", c.Name)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !q.Enqueue(ctx, NewCommand(ctx, fmt.Sprintf("c%d", i), noop)) {
			t.Error("expected enqueue to succeed")
		}
	}
	if q.Enqueue(ctx, NewCommand(ctx, "overflow", noop)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		q.Enqueue(ctx, NewCommand(ctx, fmt.Sprintf("c%d", i), noop))
	}
	_ = q.Close()

	i := 0
	for c := range q.Dequeue(ctx) {
		if want := fmt.Sprintf("c%d", i); c.Name != want {
			t.Errorf("expected %s, got %s", want, c.Name)
		}
		i++
	}
	if i != 5 {
		t.Errorf("expected 5 commands drained after close, got %d", i)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numGoroutines := 10
	numCommands := 50

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numCommands; j++ {
				c := NewCommand(ctx, fmt.Sprintf("c%d_%d", id, j), noop)
				for !q.Enqueue(ctx, c) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	received := 0
	out := q.Dequeue(ctx)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		_ = q.Close()
		close(done)
	}()
	for range out {
		received++
	}
	<-done

	if received != numGoroutines*numCommands {
		t.Errorf("expected %d commands, got %d", numGoroutines*numCommands, received)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected open queue")
	}
	_ = q.Close()
	_ = q.Close()
	if !q.IsClosed() {
		t.Error("expected closed queue")
	}
	if q.Enqueue(ctx, NewCommand(ctx, "late", noop)) {
		t.Error("expected enqueue on closed queue to fail")
	}
}

func TestInMemoryQueue_EnqueueCancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the send or the cancelled context may win the select, but a
	// full queue must always refuse.
	q.Enqueue(context.Background(), NewCommand(ctx, "fill", noop))
	if q.Enqueue(ctx, NewCommand(ctx, "refused", noop)) {
		t.Error("expected enqueue to fail on a full queue")
	}
}

func TestCommand_FinishOnce(t *testing.T) {
	c := NewCommand(context.Background(), "x", noop)
	boom := errors.New("boom")
	c.Finish(boom)
	c.Finish(nil)

	if err := <-c.Done(); !errors.Is(err, boom) {
		t.Errorf("expected first result, got %v", err)
	}
	select {
	case err := <-c.Done():
		t.Errorf("expected a single result, got second %v", err)
	default:
	}
}
