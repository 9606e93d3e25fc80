package broadcast

import "github.com/okian/proctor/pkg/logger"

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithObserverBuffer sets the per-observer outbound queue capacity.
func WithObserverBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
