package repository

import (
	"time"

	"github.com/google/uuid"
)

const (
	defaultEventRetention        = 10000
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Options are the settings shared by every Store backend.
type Options struct {
	Clock                 func() time.Time
	NewID                 func() string
	EventRetention        int
	MetricsUpdateInterval time.Duration
}

// Option applies a configuration option to a Store backend.
type Option func(*Options)

// WithClock overrides the time source used for timestamps and session start.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Options) {
		if fn != nil {
			o.NewID = fn
		}
	}
}

// WithEventRetention bounds the number of retained events; the oldest are
// discarded first. n <= 0 keeps everything.
func WithEventRetention(n int) Option {
	return func(o *Options) {
		o.EventRetention = n
	}
}

// WithMetricsUpdateInterval sets the interval for background gauge updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(o *Options) {
		if interval > 0 {
			o.MetricsUpdateInterval = interval
		}
	}
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{
		Clock:                 time.Now,
		NewID:                 uuid.NewString,
		EventRetention:        defaultEventRetention,
		MetricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ValidLimit returns ErrInvalidLimit when limit is not positive.
func ValidLimit(limit int) error {
	if limit <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
