package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/proctor/internal/adapters/schedule"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
)

var injectorKinds = []string{
	"gaze_left", "gaze_right", "gaze_away", "face_not_visible",
	"suspicious_movement", "normal_behavior", "focused_behavior",
	"hand_movement", "head_turn", "eye_tracking_lost",
}

// Injector emits one random event for one random active subject per tick.
type Injector struct {
	rnd       *Random
	subjects  SubjectLister
	processor EventProcessor
	interval  time.Duration
	logger    logger.Logger
}

// NewInjector creates an injector ticking every interval.
func NewInjector(rnd *Random, subjects SubjectLister, p EventProcessor, interval time.Duration) *Injector {
	return &Injector{
		rnd:       rnd,
		subjects:  subjects,
		processor: p,
		interval:  interval,
		logger:    logger.Get().Named("injector"),
	}
}

// Generate builds a random event for subjectID.
func (in *Injector) Generate(subjectID string) model.Event {
	kind := in.rnd.Pick(injectorKinds)
	e := model.Event{
		SubjectID:   subjectID,
		Kind:        kind,
		Source:      model.SourceInjector,
		Priority:    model.PriorityNormal,
		Description: "Normal behavior detected",
		Score:       in.rnd.Intn(20) + 80,
	}

	switch {
	case strings.Contains(kind, "away") || strings.Contains(kind, "not_visible") || strings.Contains(kind, "suspicious"):
		e.Priority = model.PriorityWarning
		if in.rnd.Float64() < 0.5 {
			e.Priority = model.PriorityHigh
		}
		e.Score = in.rnd.Intn(40) + 30
		switch kind {
		case "face_not_visible":
			e.Description = "Face not visible for extended period"
		case "gaze_away":
			e.Description = "Extended gaze away from screen"
		default:
			e.Description = "Suspicious hand movement"
		}
	case strings.Contains(kind, "focused"):
		e.Description = "Focused behavior confirmed"
	case strings.Contains(kind, "normal"):
	default:
		e.Priority = model.PriorityWarning
		e.Score = in.rnd.Intn(30) + 50
		e.Description = strings.ReplaceAll(kind, "_", " ") + " detected"
	}
	return e
}

// Tick injects a single event.
func (in *Injector) Tick(ctx context.Context) error {
	subjects, err := in.subjects.ListActiveSubjects(ctx)
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}
	if len(subjects) == 0 {
		return nil
	}
	target := subjects[in.rnd.Intn(len(subjects))]
	e := in.Generate(target.ID)
	if err := in.processor.ProcessEvent(ctx, e); err != nil {
		in.logger.Error(ctx, "inject failed", logger.String("subject", target.ID), logger.Error(err))
	}
	return nil
}

// Task wraps the injector in a periodic task.
func (in *Injector) Task() *schedule.Periodic {
	return schedule.NewPeriodic(in.interval, in.Tick,
		schedule.WithName(string(model.SourceInjector)),
		schedule.WithLogger(in.logger),
	)
}
