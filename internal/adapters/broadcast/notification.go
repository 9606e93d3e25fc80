package broadcast

import "github.com/okian/proctor/internal/domain/model"

// Kind is the wire tag of a notification.
type Kind string

// Notification kinds.
const (
	KindEvent         Kind = "event"
	KindSubjectUpdate Kind = "subject_update"
	KindStatsUpdate   Kind = "stats_update"
)

// Notification is the envelope written to every observer.
type Notification struct {
	Type Kind `json:"type"`
	Data any  `json:"data"`
}

// EventNotification wraps a newly created event.
func EventNotification(e model.Event) Notification {
	return Notification{Type: KindEvent, Data: e}
}

// SubjectNotification wraps the post-update state of a subject.
func SubjectNotification(s model.Subject) Notification {
	return Notification{Type: KindSubjectUpdate, Data: s}
}

// StatsNotification wraps a dashboard statistics snapshot.
func StatsNotification(st model.DashboardStats) Notification {
	return Notification{Type: KindStatsUpdate, Data: st}
}
