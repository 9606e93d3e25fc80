package model

import (
	"fmt"
	"time"
)

// DashboardStats is recomputed on demand from the active subject set.
type DashboardStats struct {
	ActiveStudents  int    `json:"activeStudents"`
	TotalAlerts     int    `json:"totalAlerts"`
	FlaggedStudents int    `json:"flaggedStudents"`
	SessionDuration string `json:"sessionDuration"`
	SessionSeconds  int64  `json:"sessionSeconds"`
}

// ComputeStats derives dashboard statistics. Inactive subjects are ignored.
func ComputeStats(subjects []Subject, sessionStart, now time.Time) DashboardStats {
	var st DashboardStats
	for _, s := range subjects {
		if !s.Active {
			continue
		}
		st.ActiveStudents++
		st.TotalAlerts += s.AlertCount
		if s.Status == StatusFlagged {
			st.FlaggedStudents++
		}
	}
	elapsed := now.Sub(sessionStart)
	if elapsed < 0 {
		elapsed = 0
	}
	st.SessionSeconds = int64(elapsed / time.Second)
	st.SessionDuration = FormatSession(elapsed)
	return st
}

// FormatSession renders an elapsed duration as "<h>h <m>m".
func FormatSession(d time.Duration) string {
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
