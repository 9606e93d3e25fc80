// Package schedule runs periodic tasks that can be stopped between
// iterations but never interrupted mid-iteration.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/proctor/pkg/logger"
)

// Func is one iteration of a periodic task.
type Func func(ctx context.Context) error

// Task runs until stopped.
type Task interface {
	// Run blocks until ctx is canceled or Stop is called.
	Run(ctx context.Context)

	// Stop signals the task to exit after the current iteration. It does
	// not wait.
	Stop()

	// Shutdown stops the task and waits for Run to return.
	Shutdown(ctx context.Context) error
}

// Periodic invokes a Func on a fixed interval.
type Periodic struct {
	name     string
	interval time.Duration
	delay    time.Duration
	fn       Func
	logger   logger.Logger

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}
}

var _ Task = (*Periodic)(nil)

// NewPeriodic creates a task that calls fn every interval.
func NewPeriodic(interval time.Duration, fn Func, opts ...Option) *Periodic {
	p := &Periodic{
		name:     "periodic",
		interval: interval,
		fn:       fn,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("schedule"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.String("task", p.name))
	return p
}

// Name returns the task name.
func (p *Periodic) Name() string { return p.name }

// Run starts the loop. A non-positive interval returns immediately.
func (p *Periodic) Run(ctx context.Context) {
	defer close(p.done)

	if p.interval <= 0 {
		p.logger.Warn(ctx, "non-positive interval, task not started", logger.Duration("interval", p.interval))
		return
	}

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.shutdown:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
		}

		// a stop that raced with the tick wins
		select {
		case <-p.shutdown:
			return
		default:
		}

		if err := p.fn(ctx); err != nil {
			p.logger.Error(ctx, "iteration failed", logger.Error(err))
		}
	}
}

// Stop signals the loop to exit.
func (p *Periodic) Stop() {
	p.stopOnce.Do(func() { close(p.shutdown) })
}

// Shutdown signals the loop and waits for it to finish or ctx to expire.
func (p *Periodic) Shutdown(ctx context.Context) error {
	p.Stop()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
