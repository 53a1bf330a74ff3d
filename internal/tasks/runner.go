// Package tasks runs fire-and-forget background work detached from the
// request that started it.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

type Runner struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewRunner(concurrency int, logger *slog.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger.With("component", "tasks"),
	}
}

// Go runs fn in the background with a context that keeps ctx's values but
// not its cancellation. Failures and panics are logged and never retried.
// Tasks submitted after Shutdown are dropped.
func (r *Runner) Go(ctx context.Context, name string, fn func(context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("dropping task submitted after shutdown", "task", name)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	id := uuid.NewString()

	go func() {
		defer r.wg.Done()
		if err := r.sem.Acquire(detached, 1); err != nil {
			r.logger.Error("background task not started", "task", name, "id", id, "error", err)
			return
		}
		defer r.sem.Release(1)

		if err := r.run(detached, fn); err != nil {
			r.logger.Error("background task failed", "task", name, "id", id, "error", err)
			return
		}
		r.logger.Debug("background task finished", "task", name, "id", id)
	}()
}

func (r *Runner) run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Wait blocks until every submitted task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones until ctx ends.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
