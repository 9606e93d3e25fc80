// Package repository defines the entity store interface shared by the
// memory and sqlite backends.
package repository

import (
	"context"

	"github.com/okian/proctor/internal/domain/model"
)

// Mutation computes the next state of a subject from its current state.
// Returning an error aborts the update and leaves the subject unchanged.
type Mutation func(current model.Subject) (model.Subject, error)

// Store provides read/write access to subjects and events.
type Store interface {
	// ListActiveSubjects returns active subjects in creation order.
	ListActiveSubjects(ctx context.Context) ([]model.Subject, error)
	// ListSubjects returns every subject, active or not, in creation order.
	ListSubjects(ctx context.Context) ([]model.Subject, error)
	// GetSubject returns ErrNotFound if id is unknown.
	GetSubject(ctx context.Context, id string) (model.Subject, error)
	// CreateSubject returns ErrAlreadyExists if id is taken.
	CreateSubject(ctx context.Context, s model.Subject) (model.Subject, error)
	// UpdateSubject applies fn atomically with respect to every other
	// write to the same subject and returns the stored result.
	UpdateSubject(ctx context.Context, id string, fn Mutation) (model.Subject, error)
	// DeactivateSubject soft-deletes a subject.
	DeactivateSubject(ctx context.Context, id string) error

	// CreateEvent assigns an id and timestamp when absent and stores e.
	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	// ListRecentEvents returns at most limit events, newest first.
	ListRecentEvents(ctx context.Context, limit int) ([]model.Event, error)
	// ListEventsBySubject returns at most limit events for id, newest first.
	ListEventsBySubject(ctx context.Context, id string, limit int) ([]model.Event, error)
	// DeleteEvent hard-deletes one event.
	DeleteEvent(ctx context.Context, id string) error
	// DeleteAllEvents removes every event and reports how many were removed.
	DeleteAllEvents(ctx context.Context) (int, error)

	// DashboardStats derives statistics from the active subjects.
	DashboardStats(ctx context.Context) (model.DashboardStats, error)

	Close() error
}
