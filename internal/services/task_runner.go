package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// backgroundRunner runs at most limit tasks at a time. When every slot is
// busy the task runs on the caller's goroutine instead of being dropped.
type backgroundRunner struct {
	group   errgroup.Group
	base    context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewTaskRunner creates a bounded background runner. Each task gets its own
// timeout derived from a context that Shutdown does not cancel until the
// grace period expires.
func NewTaskRunner(limit int, timeout time.Duration, logger *zap.Logger) TaskRunner {
	if limit <= 0 {
		limit = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	r := &backgroundRunner{base: base, cancel: cancel, timeout: timeout, logger: logger}
	r.group.SetLimit(limit)
	return r
}

func (r *backgroundRunner) Go(name string, fn func(ctx context.Context) error) {
	task := func() error {
		r.run(name, fn)
		return nil
	}

	r.mu.RLock()
	closed := r.closed
	started := !closed && r.group.TryGo(task)
	r.mu.RUnlock()

	switch {
	case closed:
		r.logger.Warn("Task runner is shut down, running inline", zap.String("task", name))
		r.run(name, fn)
	case !started:
		r.logger.Debug("Task runner saturated, running inline", zap.String("task", name))
		r.run(name, fn)
	}
}

func (r *backgroundRunner) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Background task panicked", zap.String("task", name), zap.Any("panic", p))
		}
	}()

	start := time.Now()
	if err := fn(ctx); err != nil {
		r.logger.Error("Background task failed",
			zap.String("task", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
}

// Shutdown stops accepting background work and waits for running tasks.
// Tasks still running when ctx expires have their contexts cancelled.
func (r *backgroundRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		r.logger.Warn("Task runner shutdown timed out")
		return ctx.Err()
	}
}
