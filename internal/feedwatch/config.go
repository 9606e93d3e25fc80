// Package feedwatch is a probe for a running monitoring service. It
// bootstraps from the query API, subscribes to the live channel, optionally
// submits ad-hoc events and verifies that every subject update is preceded
// by its event.
package feedwatch

import "time"

// Config holds configuration for one probe run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Duration time.Duration // How long to watch the live channel
	Timeout  time.Duration // HTTP request timeout
	Submit   int           // Ad-hoc events to post while watching
	Workers  int           // Concurrent submitters
	Verbose  bool          // Log every frame
}

// Subject is the subset of the subject shape the probe needs.
type Subject struct {
	ID     string `json:"studentId"`
	Status string `json:"status"`
	Active bool   `json:"isActive"`
}

// Event is the body posted to the events endpoint.
type Event struct {
	EventID     string `json:"eventId"`
	SubjectID   string `json:"studentId"`
	Kind        string `json:"event"`
	Description string `json:"description"`
	Score       int    `json:"score"`
	Priority    string `json:"priority"`
}

// AckResponse represents the response for a duplicate submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds probe statistics.
type Stats struct {
	Subjects        int
	Frames          int
	Events          int
	SubjectUpdates  int
	StatsUpdates    int
	Violations      int
	EventsSubmitted int
	EventsCreated   int
	EventsDuplicate int
	EventsFailed    int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
