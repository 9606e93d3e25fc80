package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/proctor/internal/adapters/broadcast"
	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/detector"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/scoring"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

// Processor classifies observations, persists the resulting event, applies
// the policy to the subject and broadcasts both. The whole sequence runs
// under a per-subject lock so broadcasts for one subject leave in the order
// they were computed.
type Processor struct {
	store  repository.Store
	hub    broadcast.Broadcaster
	policy *scoring.Policy
	locks  *keyedMutex
	logger logger.Logger
}

var (
	_ detector.Processor      = (*Processor)(nil)
	_ detector.EventProcessor = (*Processor)(nil)
)

// NewProcessor wires a processor over the given store and broadcaster.
func NewProcessor(store repository.Store, hub broadcast.Broadcaster, policy *scoring.Policy, log logger.Logger) *Processor {
	if policy == nil {
		policy = scoring.NewPolicy()
	}
	if log == nil {
		log = logger.Get()
	}
	return &Processor{
		store:  store,
		hub:    hub,
		policy: policy,
		locks:  newKeyedMutex(),
		logger: log.Named("processor"),
	}
}

// ProcessObservation turns one detector observation into an event and a
// subject update.
func (p *Processor) ProcessObservation(ctx context.Context, subjectID string, obs model.Observation) error {
	c, err := scoring.Classify(obs)
	if err != nil {
		return err
	}
	confidence := obs.Confidence()
	_, _, err = p.apply(ctx, model.Event{
		SubjectID:   subjectID,
		Kind:        c.Kind,
		Description: c.Description,
		Score:       c.Score,
		Source:      obs.Source(),
		Priority:    c.Priority,
	}, &confidence)
	return err
}

// ProcessEvent applies an already classified event. Observation confidence
// is absent so the subject's confidence is left alone.
func (p *Processor) ProcessEvent(ctx context.Context, e model.Event) error {
	_, _, err := p.apply(ctx, e, nil)
	return err
}

// apply returns the stored event and, when the subject exists, its new
// state.
func (p *Processor) apply(ctx context.Context, e model.Event, confidence *int) (model.Event, *model.Subject, error) {
	unlock := p.locks.Lock(e.SubjectID)
	defer unlock()

	stored, err := p.store.CreateEvent(ctx, e)
	if err != nil {
		return model.Event{}, nil, fmt.Errorf("create event: %w", err)
	}
	metrics.RecordEventCreated(string(stored.Source), string(stored.Priority))

	var before model.Status
	subject, err := p.store.UpdateSubject(ctx, stored.SubjectID, func(cur model.Subject) (model.Subject, error) {
		before = cur.Status
		return p.policy.Apply(cur, stored.Source, stored.Priority, confidence, stored.Timestamp), nil
	})
	var updated *model.Subject
	switch {
	case err == nil:
		updated = &subject
		if before != subject.Status {
			metrics.RecordSubjectTransition(string(before), string(subject.Status))
		}
	case errors.Is(err, repository.ErrNotFound):
		p.logger.Debug(ctx, "event for unknown subject stored without update",
			logger.String("subject", stored.SubjectID))
	default:
		return stored, nil, fmt.Errorf("update subject: %w", err)
	}

	p.publish(ctx, broadcast.EventNotification(stored))
	if updated != nil {
		p.publish(ctx, broadcast.SubjectNotification(*updated))
	}
	return stored, updated, nil
}

func (p *Processor) publish(ctx context.Context, n broadcast.Notification) {
	if p.hub == nil {
		return
	}
	if err := p.hub.Broadcast(ctx, n); err != nil {
		p.logger.Warn(ctx, "broadcast failed", logger.String("type", string(n.Type)), logger.Error(err))
	}
}
