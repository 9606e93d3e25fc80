package service

import (
	"time"

	"github.com/okian/proctor/internal/adapters/broadcast"
	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/detector"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the entity store. The service owns it and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithHub sets the broadcaster. A hub with a Close method is closed on Stop.
func WithHub(hub broadcast.Broadcaster) Option {
	return func(s *Service) {
		if hub != nil {
			s.hub = hub
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFaceDetector replaces the synthetic face detector.
func WithFaceDetector(d detector.Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.face = d
		}
	}
}

// WithGestureDetector replaces the synthetic gesture detector.
func WithGestureDetector(d detector.Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.gesture = d
		}
	}
}

// WithFaceInterval sets the face detector period.
func WithFaceInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.faceInterval = d
		}
	}
}

// WithGestureInterval sets the gesture detector period.
func WithGestureInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gestureInterval = d
		}
	}
}

// WithStatsInterval sets how often stats are broadcast.
func WithStatsInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.statsInterval = d
		}
	}
}

// WithInjector enables the random event injector at the given period.
func WithInjector(enabled bool, interval time.Duration) Option {
	return func(s *Service) {
		s.injectorEnabled = enabled
		if interval > 0 {
			s.injectorInterval = interval
		}
	}
}

// WithWarningAlertEvery raises an alert on every nth warning.
func WithWarningAlertEvery(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.warningAlertEvery = n
		}
	}
}

// WithRecentAlertWindow sets how many recent events Status inspects.
func WithRecentAlertWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentAlertWindow = n
		}
	}
}

// WithMaxEventLimit caps the number of events a query may return.
func WithMaxEventLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEventLimit = n
		}
	}
}

// WithDedupeSize sets the size of the submission id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRandomSeed makes the synthetic detectors reproducible. 0 seeds from
// the clock.
func WithRandomSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithAutostartMonitoring controls whether Start also starts the detectors.
func WithAutostartMonitoring(enabled bool) Option {
	return func(s *Service) {
		s.autostart = enabled
	}
}

// WithRoster sets the subjects seeded on Start.
func WithRoster(seeds []model.SubjectSeed) Option {
	return func(s *Service) {
		if seeds != nil {
			s.roster = seeds
		}
	}
}
