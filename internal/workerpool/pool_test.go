package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haasonsaas/turnengine/internal/errs"
	"github.com/haasonsaas/turnengine/internal/events"
	"github.com/haasonsaas/turnengine/internal/turn"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.StreamEvent
}

func (s *recordingSink) Publish(ctx context.Context, ev events.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) errorEvents() []events.StreamEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.StreamEvent
	for _, ev := range s.events {
		if ev.Kind == events.KindError {
			out = append(out, ev)
		}
	}
	return out
}

type fakeProcessor struct {
	fn func(ctx context.Context, task turn.Task) error
}

func (f *fakeProcessor) Process(ctx context.Context, task turn.Task) error {
	return f.fn(ctx, task)
}

func TestEnqueueReturnsMintedIdentifiers(t *testing.T) {
	proc := &fakeProcessor{fn: func(ctx context.Context, task turn.Task) error { return nil }}
	sink := &recordingSink{}
	pool := New(proc, sink, 1, 4, nil)
	pool.Start()
	defer pool.Stop()

	turnID, traceID := pool.Enqueue(turn.Task{SessionID: "s1"})
	if turnID == "" || traceID == "" {
		t.Fatalf("expected minted turn_id and trace_id")
	}
}

func TestDomainErrorProducesExactlyOneErrorEvent(t *testing.T) {
	proc := &fakeProcessor{fn: func(ctx context.Context, task turn.Task) error {
		return errs.Validation("bad turn")
	}}
	sink := &recordingSink{}
	pool := New(proc, sink, 2, 4, nil)
	pool.Start()

	pool.Enqueue(turn.Task{SessionID: "s1"})
	pool.Stop()

	errEvents := sink.errorEvents()
	if len(errEvents) != 1 {
		t.Fatalf("expected exactly 1 error event, got %d", len(errEvents))
	}
	if errEvents[0].ErrorCode != string(errs.ValidationError) {
		t.Fatalf("expected VALIDATION_FAILED error code, got %q", errEvents[0].ErrorCode)
	}
}

func TestUnexpectedErrorStillProducesOneErrorEvent(t *testing.T) {
	proc := &fakeProcessor{fn: func(ctx context.Context, task turn.Task) error {
		panic("boom")
	}}
	sink := &recordingSink{}
	pool := New(proc, sink, 1, 4, nil)
	pool.Start()

	pool.Enqueue(turn.Task{SessionID: "s1"})
	pool.Stop()

	errEvents := sink.errorEvents()
	if len(errEvents) != 1 {
		t.Fatalf("expected exactly 1 error event for a panicking task, got %d", len(errEvents))
	}
}

func TestSuccessfulTaskProducesNoErrorEvent(t *testing.T) {
	proc := &fakeProcessor{fn: func(ctx context.Context, task turn.Task) error { return nil }}
	sink := &recordingSink{}
	pool := New(proc, sink, 1, 4, nil)
	pool.Start()

	pool.Enqueue(turn.Task{SessionID: "s1"})
	pool.Stop()

	if len(sink.errorEvents()) != 0 {
		t.Fatalf("expected no error events for a successful task")
	}
}

func TestGracefulStopDrainsAllPendingTasks(t *testing.T) {
	var processed int64
	proc := &fakeProcessor{fn: func(ctx context.Context, task turn.Task) error {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&processed, 1)
		return nil
	}}
	sink := &recordingSink{}
	pool := New(proc, sink, 3, 20, nil)
	pool.Start()

	for i := 0; i < 10; i++ {
		pool.Enqueue(turn.Task{SessionID: "s1"})
	}
	pool.Stop()

	if atomic.LoadInt64(&processed) != 10 {
		t.Fatalf("expected all 10 tasks to drain before stop returned, got %d", processed)
	}
}

func TestEnqueueBlocksWhenQueueIsFull(t *testing.T) {
	release := make(chan struct{})
	proc := &fakeProcessor{fn: func(ctx context.Context, task turn.Task) error {
		<-release
		return nil
	}}
	sink := &recordingSink{}
	pool := New(proc, sink, 1, 1, nil)
	pool.Start()

	pool.Enqueue(turn.Task{SessionID: "s1"}) // occupies the single worker
	pool.Enqueue(turn.Task{SessionID: "s2"}) // fills the depth-1 queue

	enqueued := make(chan struct{})
	go func() {
		pool.Enqueue(turn.Task{SessionID: "s3"})
		close(enqueued)
	}()

	select {
	case <-enqueued:
		t.Fatalf("expected Enqueue to block while queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-enqueued
	pool.Stop()
}
