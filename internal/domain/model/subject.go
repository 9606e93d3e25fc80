// Package model contains domain models passed between layers.
package model

import "time"

// Status is the escalation state of a subject.
type Status string

// Subject statuses, in escalation order.
const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusFlagged Status = "flagged"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNormal, StatusWarning, StatusFlagged:
		return true
	}
	return false
}

// Score bounds shared by behavior score, confidence and event scores.
const (
	MinScore = 0
	MaxScore = 100
)

// Subject is one monitored entity with accumulating behavioral state.
type Subject struct {
	ID             string    `json:"studentId"`
	Name           string    `json:"name"`
	BehaviorScore  int       `json:"behaviorScore"`
	Status         Status    `json:"status"`
	AlertCount     int       `json:"alertCount"`
	WarningCount   int       `json:"warningCount"`
	LastActivityAt time.Time `json:"lastActivity"`
	AIConfidence   int       `json:"aiConfidence"`
	Active         bool      `json:"isActive"`
}

// Clamp forces the bounded fields back into [MinScore, MaxScore].
func (s *Subject) Clamp() {
	s.BehaviorScore = ClampScore(s.BehaviorScore)
	s.AIConfidence = ClampScore(s.AIConfidence)
	if s.AlertCount < 0 {
		s.AlertCount = 0
	}
	if s.WarningCount < 0 {
		s.WarningCount = 0
	}
}

// ClampScore bounds v to [MinScore, MaxScore].
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// SubjectSeed describes a subject created at bootstrap.
type SubjectSeed struct {
	ID            string `koanf:"id" json:"studentId"`
	Name          string `koanf:"name" json:"name"`
	BehaviorScore int    `koanf:"behavior_score" json:"behaviorScore"`
	Status        Status `koanf:"status" json:"status"`
	AlertCount    int    `koanf:"alert_count" json:"alertCount"`
	AIConfidence  int    `koanf:"ai_confidence" json:"aiConfidence"`
}

// Subject materializes the seed as an active subject.
func (s SubjectSeed) Subject(now time.Time) Subject {
	status := s.Status
	if !status.Valid() {
		status = StatusNormal
	}
	subj := Subject{
		ID:             s.ID,
		Name:           s.Name,
		BehaviorScore:  s.BehaviorScore,
		Status:         status,
		AlertCount:     s.AlertCount,
		LastActivityAt: now,
		AIConfidence:   s.AIConfidence,
		Active:         true,
	}
	subj.Clamp()
	return subj
}

// DefaultRoster is the fixed seed list used when configuration provides none.
func DefaultRoster() []SubjectSeed {
	return []SubjectSeed{
		{ID: "STU101", Name: "Alex Johnson", BehaviorScore: 95, Status: StatusNormal, AlertCount: 0, AIConfidence: 98},
		{ID: "STU102", Name: "Sarah Chen", BehaviorScore: 73, Status: StatusWarning, AlertCount: 2, AIConfidence: 76},
		{ID: "STU103", Name: "Mike Rodriguez", BehaviorScore: 42, Status: StatusFlagged, AlertCount: 5, AIConfidence: 45},
		{ID: "STU104", Name: "Emma Wilson", BehaviorScore: 89, Status: StatusNormal, AlertCount: 0, AIConfidence: 92},
		{ID: "STU105", Name: "David Park", BehaviorScore: 91, Status: StatusNormal, AlertCount: 0, AIConfidence: 88},
		{ID: "STU106", Name: "Lisa Zhang", BehaviorScore: 71, Status: StatusWarning, AlertCount: 1, AIConfidence: 68},
		{ID: "STU107", Name: "John Smith", BehaviorScore: 86, Status: StatusNormal, AlertCount: 0, AIConfidence: 94},
		{ID: "STU108", Name: "Ana Garcia", BehaviorScore: 39, Status: StatusFlagged, AlertCount: 3, AIConfidence: 38},
	}
}
