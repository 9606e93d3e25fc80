package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the severity tier of a classified event.
type Priority string

// Event priorities.
const (
	PriorityNormal  Priority = "normal"
	PriorityWarning Priority = "warning"
	PriorityHigh    Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityWarning, PriorityHigh:
		return true
	}
	return false
}

// Source names the producer of an event.
type Source string

// Known event sources.
const (
	SourceFace     Source = "ai_face_agent"
	SourceGesture  Source = "ai_gesture_agent"
	SourceInjector Source = "ai_injector"
	SourceAPI      Source = "api"
)

// Event is an append-only record of one classified observation.
type Event struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"studentId"`
	Kind        string    `json:"event"`
	Description string    `json:"description"`
	Score       int       `json:"score"`
	Source      Source    `json:"source"`
	Priority    Priority  `json:"priority"`
	Timestamp   time.Time `json:"timestamp"`
}

// Validate checks the caller-supplied fields of an event.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.SubjectID) == "":
		return fmt.Errorf("missing studentId")
	case strings.TrimSpace(e.Kind) == "":
		return fmt.Errorf("missing event")
	case strings.TrimSpace(e.Description) == "":
		return fmt.Errorf("missing description")
	case strings.TrimSpace(string(e.Source)) == "":
		return fmt.Errorf("missing source")
	case e.Score < MinScore || e.Score > MaxScore:
		return fmt.Errorf("score %d out of range [%d,%d]", e.Score, MinScore, MaxScore)
	case !e.Priority.Valid():
		return fmt.Errorf("invalid priority %q", e.Priority)
	}
	return nil
}
