package detector

import (
	"context"
	"math"

	"github.com/okian/proctor/internal/domain/model"
)

var (
	handPositions = []string{
		model.HandVisibleDesk, model.HandHidden, model.HandNearFace, model.HandWriting,
		model.HandTyping, model.HandSuspiciousArea, model.HandPhoneArea,
	}
	bodyPoses = []string{
		model.PoseUpright, model.PoseLeaningForward, model.PoseLeaningBack, model.PoseSlouching,
		model.PoseTurnedLeft, model.PoseTurnedRight, model.PoseLookingDown,
	}
	movementLevels = []string{
		model.MovementMinimal, model.MovementNormal, model.MovementHigh, model.MovementExcessive,
	}
)

// Gesture simulates pose and hand tracking.
type Gesture struct {
	rnd *Random
}

var _ Detector = (*Gesture)(nil)

// NewGesture creates a gesture detector drawing from rnd.
func NewGesture(rnd *Random) *Gesture {
	return &Gesture{rnd: rnd}
}

// Source implements Detector.
func (g *Gesture) Source() model.Source { return model.SourceGesture }

// Analyze implements Detector.
func (g *Gesture) Analyze(ctx context.Context, _ string) (model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hand := g.rnd.Pick(handPositions)
	pose := g.rnd.Pick(bodyPoses)
	movement := g.rnd.Pick(movementLevels)

	confidence := g.rnd.Float64()*30 + 70
	if hand == model.HandHidden {
		confidence *= 0.6
	}
	if movement == model.MovementExcessive {
		confidence *= 0.8
	}
	if pose == model.PoseUpright && hand == model.HandVisibleDesk {
		confidence *= 1.1
	}
	confidence = math.Max(30, math.Min(100, confidence))

	stability := 85.0
	switch movement {
	case model.MovementExcessive:
		stability -= 40
	case model.MovementHigh:
		stability -= 20
	}
	if pose == model.PoseSlouching {
		stability -= 10
	}
	if hand == model.HandWriting || hand == model.HandTyping {
		stability += 10
	}
	stability = math.Max(0, math.Min(100, stability+(g.rnd.Float64()-0.5)*15))

	return model.GestureObservation{
		HandPosition:       hand,
		BodyPose:           pose,
		MovementLevel:      movement,
		SuspiciousActivity: model.IsSuspicious(hand, pose, movement),
		ConfidencePct:      int(math.Round(confidence)),
		Stability:          int(math.Round(stability)),
	}, nil
}
