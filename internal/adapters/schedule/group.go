package schedule

import (
	"context"
	"sync"

	"github.com/okian/proctor/pkg/logger"
)

// Group starts and stops a set of tasks together.
type Group struct {
	tasks  []Task
	wg     sync.WaitGroup
	logger logger.Logger
}

// NewGroup creates a group over tasks.
func NewGroup(tasks ...Task) *Group {
	return &Group{
		tasks:  tasks,
		logger: logger.Get().Named("schedule-group"),
	}
}

// Start runs every task in its own goroutine.
func (g *Group) Start(ctx context.Context) {
	for _, t := range g.tasks {
		g.wg.Add(1)
		go func(t Task) {
			defer g.wg.Done()
			t.Run(ctx)
		}(t)
	}
	g.logger.Debug(ctx, "tasks started", logger.Int("count", len(g.tasks)))
}

// Stop signals every task without waiting for in-flight iterations.
func (g *Group) Stop() {
	for _, t := range g.tasks {
		t.Stop()
	}
}

// Shutdown stops every task and waits for all of them or ctx.
func (g *Group) Shutdown(ctx context.Context) error {
	g.Stop()
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.logger.Warn(ctx, "group shutdown timed out")
		return ctx.Err()
	}
}
