// Package workerpool implements the TurnWorkerPool: a bounded FIFO queue
// drained by a fixed set of worker goroutines, with graceful draining and
// DomainError-aware supervision so a bug in one turn never takes down the
// pool.
package workerpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/turnengine/internal/errs"
	"github.com/haasonsaas/turnengine/internal/events"
	"github.com/haasonsaas/turnengine/internal/turn"
)

const defaultGracefulDrain = 30 * time.Second

// Processor is the subset of turn.Engine the pool depends on.
type Processor interface {
	Process(ctx context.Context, task turn.Task) error
}

// Sink is the subset of events.Sink the pool depends on, used only to
// publish the terminal ERROR event when a task fails outside the engine's
// own happy-path FINAL emission.
type Sink interface {
	Publish(ctx context.Context, ev events.StreamEvent) error
}

// Pool is the TurnWorkerPool: queue depth and worker count are fixed at
// construction, matching the bounded-resource model the engine runs
// under in production.
type Pool struct {
	queue          chan turn.Task
	processor      Processor
	sink           Sink
	workerCount    int
	gracefulDrain  time.Duration
	logger         *slog.Logger

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	ctx      context.Context
	inFlight sync.WaitGroup
}

func New(processor Processor, sink Sink, workerCount, queueDepth int, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:         make(chan turn.Task, queueDepth),
		processor:     processor,
		sink:          sink,
		workerCount:   workerCount,
		gracefulDrain: defaultGracefulDrain,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
}

// Enqueue mints a turn_id/trace_id and blocks until the task is admitted
// to the queue, matching the bounded-queue backpressure the production
// engine relies on rather than dropping or rejecting overflow turns.
func (p *Pool) Enqueue(task turn.Task) (string, string) {
	if task.TurnID == "" {
		task.TurnID = uuid.NewString()
	}
	if task.TraceID == "" {
		task.TraceID = uuid.NewString()
	}
	p.inFlight.Add(1)
	p.queue <- task
	return task.TurnID, task.TraceID
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.queue:
			if !ok {
				return
			}
			p.handle(task)
			p.inFlight.Done()
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Pool) handle(task turn.Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("turn processing panicked", "turn_id", task.TurnID, "panic", rec)
			p.publishError(task, errs.New(errs.ConfigurationError, "internal error processing turn"))
		}
	}()

	err := p.processor.Process(p.ctx, task)
	if err == nil {
		return
	}

	if de, ok := errs.As(err); ok {
		if de.Retryable {
			p.logger.Warn("turn failed with a retryable domain error", "turn_id", task.TurnID, "code", de.Code, "error", de.Error())
		} else {
			p.logger.Error("turn failed with a domain error", "turn_id", task.TurnID, "code", de.Code, "error", de.Error())
		}
		p.publishError(task, de)
		return
	}

	p.logger.Error("turn failed with an unexpected error", "turn_id", task.TurnID, "error", err)
	p.publishError(task, errs.Wrap(errs.ConfigurationError, err, "unexpected error processing turn"))
}

func (p *Pool) publishError(task turn.Task, de *errs.DomainError) {
	emit := events.NewEmitter(task.SessionID, task.TurnID, task.TraceID)
	if err := p.sink.Publish(p.ctx, emit.Error(string(de.Code), de.Message, de.Retryable)); err != nil {
		p.logger.Error("failed to publish turn error event", "turn_id", task.TurnID, "error", err)
	}
}

// Stop drains the queue gracefully, waiting up to the configured timeout
// for in-flight and queued tasks to finish before cancelling remaining
// workers.
func (p *Pool) Stop() {
	close(p.queue)

	done := make(chan struct{})
	go func() {
		p.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.gracefulDrain):
		p.logger.Warn("graceful drain timed out, cancelling remaining workers")
	}

	p.cancel()
	p.wg.Wait()
}
