// Package processing runs background tasks inside the API process when no
// Redis queue is configured. Tasks are the same asynq tasks the standalone
// worker consumes, so handlers are shared between both modes.
package processing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hibiken/asynq"
)

// Pool consumes tasks from a buffered channel with a fixed number of
// goroutines. It implements queue.Enqueuer.
type Pool struct {
	handler asynq.Handler
	queue   chan *asynq.Task
	workers int
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New builds a Pool with queue capacity tied to worker count.
func New(handler asynq.Handler, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		handler: handler,
		queue:   make(chan *asynq.Task, workers*4),
		workers: workers,
		logger:  logger,
	}
}

// Start launches worker goroutines. They exit when ctx is cancelled; Wait
// blocks until all of them have returned.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker(ctx)
		}()
	}
}

// Wait blocks until every worker started by Start has exited.
func (p *Pool) Wait() { p.wg.Wait() }

// Enqueue queues a task. Options such as MaxRetry are ignored inline; a
// task runs once. A full queue rejects the task instead of blocking the
// request that produced it.
func (p *Pool) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) error {
	select {
	case p.queue <- task:
		return nil
	default:
		return fmt.Errorf("processing queue full, dropped %s task", task.Type())
	}
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue:
			p.process(ctx, task)
		}
	}
}

func (p *Pool) process(ctx context.Context, task *asynq.Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "type", task.Type(), "panic", r)
		}
	}()
	if err := p.handler.ProcessTask(ctx, task); err != nil {
		p.logger.Warn("task failed", "type", task.Type(), "err", err)
	}
}
