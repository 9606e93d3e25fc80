// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - Durations are configured in milliseconds and exposed via helpers.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// Store selects the entity store backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// EventRetention bounds stored events; 0 keeps everything.
	EventRetention int `koanf:"event_retention"`

	FaceIntervalMS    int `koanf:"face_interval_ms"`
	GestureIntervalMS int `koanf:"gesture_interval_ms"`
	StatsIntervalMS   int `koanf:"stats_interval_ms"`

	// InjectorEnabled turns on the random event injector.
	InjectorEnabled    bool `koanf:"injector_enabled"`
	InjectorIntervalMS int  `koanf:"injector_interval_ms"`

	// WarningAlertEvery raises an alert on every nth warning of a subject.
	WarningAlertEvery int `koanf:"warning_alert_every"`

	// RecentAlertWindow is how many recent events the status summary inspects.
	RecentAlertWindow int `koanf:"recent_alert_window"`

	// MaxEventLimit caps GET /api/events?limit.
	MaxEventLimit int `koanf:"max_event_limit"`

	// ObserverBuffer bounds each live observer's outbound queue.
	ObserverBuffer int `koanf:"observer_buffer"`

	// DedupeSize sets the size of the submission id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RandomSeed makes the detectors reproducible; 0 seeds from the clock.
	RandomSeed int64 `koanf:"random_seed"`

	// AutostartMonitoring starts the detectors with the service.
	AutostartMonitoring bool `koanf:"autostart_monitoring"`

	// Subjects seeds the roster. Empty means the built-in roster.
	Subjects []model.SubjectSeed `koanf:"subjects"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":5000",
		Store:               StoreMemory,
		SQLitePath:          "proctor.db",
		EventRetention:      10_000,
		FaceIntervalMS:      3000,
		GestureIntervalMS:   4000,
		StatsIntervalMS:     5000,
		InjectorIntervalMS:  2000,
		WarningAlertEvery:   2,
		RecentAlertWindow:   20,
		MaxEventLimit:       500,
		ObserverBuffer:      256,
		DedupeSize:          10_000,
		AutostartMonitoring: true,
	}
}

// Roster returns the configured seed list or the built-in roster.
func (c *Config) Roster() []model.SubjectSeed {
	if len(c.Subjects) == 0 {
		return model.DefaultRoster()
	}
	return c.Subjects
}

func (c *Config) FaceInterval() time.Duration    { return ms(c.FaceIntervalMS) }
func (c *Config) GestureInterval() time.Duration { return ms(c.GestureIntervalMS) }
func (c *Config) StatsInterval() time.Duration   { return ms(c.StatsIntervalMS) }
func (c *Config) InjectorInterval() time.Duration {
	return ms(c.InjectorIntervalMS)
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StoreSQLite:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	case c.Store == StoreSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
	case c.EventRetention < 0:
		return fmt.Errorf("%w: event_retention must not be negative", ErrInvalidConfig)
	case c.FaceIntervalMS <= 0, c.GestureIntervalMS <= 0, c.StatsIntervalMS <= 0, c.InjectorIntervalMS <= 0:
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	case c.WarningAlertEvery < 1:
		return fmt.Errorf("%w: warning_alert_every must be at least 1", ErrInvalidConfig)
	case c.RecentAlertWindow < 1, c.MaxEventLimit < 1, c.ObserverBuffer < 1, c.DedupeSize < 1:
		return fmt.Errorf("%w: sizes must be positive", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Subjects))
	for _, s := range c.Subjects {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: subject without id", ErrInvalidConfig)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate subject %s", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Status != "" && !s.Status.Valid() {
			return fmt.Errorf("%w: subject %s has status %q", ErrInvalidConfig, s.ID, s.Status)
		}
	}
	return nil
}
