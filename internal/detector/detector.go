// Package detector produces synthetic observations on a schedule and feeds
// them to the processing pipeline.
package detector

import (
	"context"

	"github.com/okian/proctor/internal/domain/model"
)

// Detector analyzes one subject and returns an observation.
type Detector interface {
	Source() model.Source
	Analyze(ctx context.Context, subjectID string) (model.Observation, error)
}

// Processor turns an observation into a stored event and subject update.
type Processor interface {
	ProcessObservation(ctx context.Context, subjectID string, obs model.Observation) error
}

// EventProcessor applies an already classified event.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, e model.Event) error
}

// SubjectLister lists the subjects a tick should cover.
type SubjectLister interface {
	ListActiveSubjects(ctx context.Context) ([]model.Subject, error)
}
