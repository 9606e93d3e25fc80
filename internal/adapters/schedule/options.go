package schedule

import (
	"time"

	"github.com/okian/proctor/pkg/logger"
)

// Option applies a configuration option to a Periodic task.
type Option func(*Periodic)

// WithName sets the task name used in logs.
func WithName(name string) Option {
	return func(p *Periodic) {
		if name != "" {
			p.name = name
		}
	}
}

// WithInitialDelay postpones the first tick, used to interleave tasks.
func WithInitialDelay(d time.Duration) Option {
	return func(p *Periodic) {
		if d > 0 {
			p.delay = d
		}
	}
}

// WithLogger sets a custom logger for the task.
func WithLogger(l logger.Logger) Option {
	return func(p *Periodic) {
		if l != nil {
			p.logger = l
		}
	}
}
