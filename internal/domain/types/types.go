// Package types contains read shapes returned across the API boundary.
package types

import "github.com/okian/proctor/internal/domain/model"

// Analysis is the combined on-demand assessment of one subject.
type Analysis struct {
	SubjectID      string                   `json:"studentId"`
	Face           model.FaceObservation    `json:"face"`
	Gesture        model.GestureObservation `json:"gesture"`
	OverallRisk    int                      `json:"overallRisk"`
	Recommendation string                   `json:"recommendation"`
}

// SystemStatus summarizes the monitoring state and population.
type SystemStatus struct {
	IsMonitoring         bool `json:"isMonitoring"`
	TotalStudents        int  `json:"totalStudents"`
	ActiveStudents       int  `json:"activeStudents"`
	FlaggedStudents      int  `json:"flaggedStudents"`
	WarningStudents      int  `json:"warningStudents"`
	RecentHighAlerts     int  `json:"recentHighAlerts"`
	RecentWarningAlerts  int  `json:"recentWarningAlerts"`
	AverageBehaviorScore int  `json:"averageBehaviorScore"`
	AverageConfidence    int  `json:"averageConfidence"`
}
