// Package scoring maps detector observations to classified events and
// applies the subject state-transition policy.
package scoring

import (
	"fmt"
	"strings"

	"github.com/okian/proctor/internal/domain/model"
)

// Classification is the outcome of interpreting one observation.
type Classification struct {
	Kind        string
	Description string
	Priority    model.Priority
	Score       int
}

// Classification thresholds and fixed scores.
const (
	gazeAwayHighConfidence    = 70
	gazeSideWarningConfidence = 80
	headTurnWarningConfidence = 75
	faceNotVisibleScore       = 20
	gazeAwayMinScore          = 30
	distressMinScore          = 40
	focusBonus                = 10
	phoneInteractionScore     = 15
	hiddenHandsScore          = 25
	suspiciousMovementScore   = 40
	excessiveMovementScore    = 45
	highMovementMinScore      = 50
	headTurnMinScore          = 60
	normalActivityBonus       = 10
	focusedPostureBonus       = 5
)

// Classify dispatches to the source-specific classifier. Unknown
// observation types yield an error.
func Classify(obs model.Observation) (Classification, error) {
	switch o := obs.(type) {
	case model.FaceObservation:
		return ClassifyFace(o), nil
	case *model.FaceObservation:
		return ClassifyFace(*o), nil
	case model.GestureObservation:
		return ClassifyGesture(o), nil
	case *model.GestureObservation:
		return ClassifyGesture(*o), nil
	default:
		return Classification{}, fmt.Errorf("unsupported observation %T", obs)
	}
}

// ClassifyFace applies the face rules in order; the first match wins.
func ClassifyFace(o model.FaceObservation) Classification {
	score := o.Attention
	switch {
	case !o.FaceVisible:
		return Classification{
			Kind:        "face_not_visible",
			Description: "Face not visible for extended period",
			Priority:    model.PriorityHigh,
			Score:       faceNotVisibleScore,
		}
	case o.GazeDirection == model.GazeAway:
		p := model.PriorityWarning
		if o.ConfidencePct > gazeAwayHighConfidence {
			p = model.PriorityHigh
		}
		return Classification{
			Kind:        "gaze_away",
			Description: "Extended gaze away from screen",
			Priority:    p,
			Score:       model.ClampScore(max(gazeAwayMinScore, score)),
		}
	case o.GazeDirection == model.GazeLeft || o.GazeDirection == model.GazeRight:
		p := model.PriorityNormal
		if o.ConfidencePct > gazeSideWarningConfidence {
			p = model.PriorityWarning
		}
		return Classification{
			Kind:        "gaze_" + o.GazeDirection,
			Description: "Gaze directed " + o.GazeDirection,
			Priority:    p,
			Score:       model.ClampScore(score),
		}
	case o.NegativeEmotion():
		return Classification{
			Kind:        "emotional_distress",
			Description: "Student showing signs of " + o.Emotion,
			Priority:    model.PriorityWarning,
			Score:       model.ClampScore(max(distressMinScore, score)),
		}
	case o.GazeDirection == model.GazeCenter &&
		(o.Emotion == model.EmotionNeutral || o.Emotion == model.EmotionHappy):
		return Classification{
			Kind:        "focused_behavior",
			Description: "Student appears focused and engaged",
			Priority:    model.PriorityNormal,
			Score:       min(model.MaxScore, score+focusBonus),
		}
	default:
		return Classification{
			Kind:        "normal_behavior",
			Description: "Normal behavior detected",
			Priority:    model.PriorityNormal,
			Score:       model.ClampScore(score),
		}
	}
}

// ClassifyGesture applies the gesture rules in order; the first match wins.
func ClassifyGesture(o model.GestureObservation) Classification {
	score := o.Stability
	switch {
	case o.HandPosition == model.HandPhoneArea:
		return Classification{
			Kind:        "phone_interaction",
			Description: "Possible phone interaction detected",
			Priority:    model.PriorityHigh,
			Score:       phoneInteractionScore,
		}
	case o.HandPosition == model.HandHidden:
		return Classification{
			Kind:        "hidden_hands",
			Description: "Hands not visible - possible cheating",
			Priority:    model.PriorityHigh,
			Score:       hiddenHandsScore,
		}
	case o.HandPosition == model.HandSuspiciousArea:
		return Classification{
			Kind:        "suspicious_movement",
			Description: "Hand movement in suspicious area",
			Priority:    model.PriorityWarning,
			Score:       suspiciousMovementScore,
		}
	case o.SuspiciousActivity:
		return Classification{
			Kind:        "excessive_movement",
			Description: "Excessive body movement detected",
			Priority:    model.PriorityWarning,
			Score:       model.ClampScore(max(excessiveMovementScore, score)),
		}
	case o.MovementLevel == model.MovementExcessive:
		return Classification{
			Kind:        "high_movement",
			Description: "High level of movement detected",
			Priority:    model.PriorityWarning,
			Score:       model.ClampScore(max(highMovementMinScore, score)),
		}
	case o.Turned():
		side := strings.TrimPrefix(o.BodyPose, "turned_")
		p := model.PriorityNormal
		if o.ConfidencePct > headTurnWarningConfidence {
			p = model.PriorityWarning
		}
		return Classification{
			Kind:        "head_turn_" + side,
			Description: "Student turned " + side,
			Priority:    p,
			Score:       model.ClampScore(max(headTurnMinScore, score)),
		}
	case o.HandPosition == model.HandWriting || o.HandPosition == model.HandTyping:
		return Classification{
			Kind:        "normal_activity",
			Description: "Student " + o.HandPosition + " - normal exam behavior",
			Priority:    model.PriorityNormal,
			Score:       min(model.MaxScore, score+normalActivityBonus),
		}
	case o.BodyPose == model.PoseUpright && o.MovementLevel == model.MovementMinimal:
		return Classification{
			Kind:        "focused_posture",
			Description: "Student maintaining focused posture",
			Priority:    model.PriorityNormal,
			Score:       min(model.MaxScore, score+focusedPostureBonus),
		}
	default:
		return Classification{
			Kind:        "normal_behavior",
			Description: "Normal posture and hand position",
			Priority:    model.PriorityNormal,
			Score:       model.ClampScore(score),
		}
	}
}
