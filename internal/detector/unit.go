package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/proctor/internal/adapters/schedule"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

// Unit binds one detector to a period and a processor.
type Unit struct {
	detector  Detector
	subjects  SubjectLister
	processor Processor
	interval  time.Duration
	offset    time.Duration
	logger    logger.Logger
}

// UnitOption configures a Unit.
type UnitOption func(*Unit)

// WithOffset delays the unit's first tick.
func WithOffset(d time.Duration) UnitOption {
	return func(u *Unit) { u.offset = d }
}

// WithUnitLogger sets a custom logger.
func WithUnitLogger(l logger.Logger) UnitOption {
	return func(u *Unit) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUnit creates a unit ticking every interval.
func NewUnit(d Detector, subjects SubjectLister, p Processor, interval time.Duration, opts ...UnitOption) *Unit {
	u := &Unit{
		detector:  d,
		subjects:  subjects,
		processor: p,
		interval:  interval,
		logger:    logger.Get().Named("detector").With(logger.String("source", string(d.Source()))),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Tick analyzes and processes every active subject, one after another.
// A failure for one subject is logged and the tick moves on; the returned
// error only reports that the subject list could not be read.
func (u *Unit) Tick(ctx context.Context) error {
	start := time.Now()
	source := string(u.detector.Source())
	defer func() {
		metrics.RecordDetectorTick(source, float64(time.Since(start).Milliseconds()))
	}()

	subjects, err := u.subjects.ListActiveSubjects(ctx)
	if err != nil {
		metrics.RecordDetectorTickError(source)
		return fmt.Errorf("list subjects: %w", err)
	}

	for _, s := range subjects {
		if ctx.Err() != nil {
			return nil
		}
		obs, err := u.detector.Analyze(ctx, s.ID)
		if err != nil {
			metrics.RecordDetectorTickError(source)
			u.logger.Error(ctx, "analyze failed", logger.String("subject", s.ID), logger.Error(err))
			continue
		}
		if err := u.processor.ProcessObservation(ctx, s.ID, obs); err != nil {
			metrics.RecordDetectorTickError(source)
			u.logger.Error(ctx, "process failed", logger.String("subject", s.ID), logger.Error(err))
		}
	}
	u.logger.Debug(ctx, "tick complete", logger.Int("subjects", len(subjects)))
	return nil
}

// Task wraps the unit in a periodic task.
func (u *Unit) Task() *schedule.Periodic {
	return schedule.NewPeriodic(u.interval, u.Tick,
		schedule.WithName(string(u.detector.Source())),
		schedule.WithInitialDelay(u.offset),
		schedule.WithLogger(u.logger),
	)
}
