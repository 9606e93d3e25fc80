package scoring

import (
	"math"

	"github.com/okian/proctor/internal/domain/model"
)

// Risk factor weights for the combined assessment.
const (
	riskFaceNotVisible     = 40
	riskGazeAway           = 30
	riskNegativeEmotion    = 15
	riskLowAttention       = 20
	riskSuspicious         = 35
	riskHiddenHands        = 30
	riskExcessiveMovement  = 20
	riskLowStability       = 15
	lowAttentionThreshold  = 50
	lowStabilityThreshold  = 40
	lowConfidenceThreshold = 60
	lowConfidenceDamping   = 0.7
)

// Recommendation texts, from most to least severe.
const (
	RecommendImmediate = "Immediate intervention required - High suspicion of cheating"
	RecommendClose     = "Close monitoring recommended - Suspicious behavior detected"
	RecommendIncreased = "Increased attention advised - Some concerning indicators"
	RecommendNormal    = "Normal monitoring - Minor irregularities noted"
	RecommendContinue  = "Continue normal monitoring - No significant concerns"
)

// OverallRisk combines a face and a gesture observation into a risk in [0,100].
func OverallRisk(face model.FaceObservation, gesture model.GestureObservation) int {
	risk := 0.0
	if !face.FaceVisible {
		risk += riskFaceNotVisible
	}
	if face.GazeDirection == model.GazeAway {
		risk += riskGazeAway
	}
	if face.NegativeEmotion() {
		risk += riskNegativeEmotion
	}
	if face.Attention < lowAttentionThreshold {
		risk += riskLowAttention
	}
	if gesture.SuspiciousActivity {
		risk += riskSuspicious
	}
	if gesture.HandPosition == model.HandHidden {
		risk += riskHiddenHands
	}
	if gesture.MovementLevel == model.MovementExcessive {
		risk += riskExcessiveMovement
	}
	if gesture.Stability < lowStabilityThreshold {
		risk += riskLowStability
	}

	risk = math.Max(0, math.Min(model.MaxScore, risk))
	avg := float64(face.ConfidencePct+gesture.ConfidencePct) / 2
	if avg < lowConfidenceThreshold {
		risk *= lowConfidenceDamping
	}
	return int(math.Round(risk))
}

// Recommendation maps a risk level to guidance text.
func Recommendation(risk int) string {
	switch {
	case risk > 80:
		return RecommendImmediate
	case risk > 60:
		return RecommendClose
	case risk > 40:
		return RecommendIncreased
	case risk > 20:
		return RecommendNormal
	default:
		return RecommendContinue
	}
}
