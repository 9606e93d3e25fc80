package detector

import (
	"context"
	"math"

	"github.com/okian/proctor/internal/domain/model"
)

var (
	emotions = []string{
		model.EmotionNeutral, model.EmotionHappy, model.EmotionSad, model.EmotionAngry,
		model.EmotionFearful, model.EmotionDisgusted, model.EmotionSurprised,
		model.EmotionConfused, model.EmotionFrustrated,
	}
	gazeDirections = []string{
		model.GazeCenter, model.GazeLeft, model.GazeRight, model.GazeUp, model.GazeDown, model.GazeAway,
	}
)

const faceVisibleProbability = 0.9

// Face simulates emotion and gaze tracking.
type Face struct {
	rnd *Random
}

var _ Detector = (*Face)(nil)

// NewFace creates a face detector drawing from rnd.
func NewFace(rnd *Random) *Face {
	return &Face{rnd: rnd}
}

// Source implements Detector.
func (f *Face) Source() model.Source { return model.SourceFace }

// Analyze implements Detector.
func (f *Face) Analyze(ctx context.Context, _ string) (model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emotion := f.rnd.Pick(emotions)
	gaze := f.rnd.Pick(gazeDirections)
	visible := f.rnd.Float64() < faceVisibleProbability

	confidence := f.rnd.Float64()*40 + 60
	if !visible {
		confidence *= 0.3
	}
	negative := emotion == model.EmotionConfused || emotion == model.EmotionFrustrated
	if negative {
		confidence *= 0.8
	}

	attention := 80.0
	switch gaze {
	case model.GazeCenter:
		attention += 15
	case model.GazeAway:
		attention -= 30
	case model.GazeLeft, model.GazeRight:
		attention -= 10
	}
	if negative {
		attention -= 20
	}
	if emotion == model.EmotionHappy || emotion == model.EmotionNeutral {
		attention += 5
	}
	attention = math.Max(0, math.Min(100, attention+(f.rnd.Float64()-0.5)*20))

	return model.FaceObservation{
		Emotion:       emotion,
		GazeDirection: gaze,
		FaceVisible:   visible,
		ConfidencePct: int(math.Round(confidence)),
		Attention:     int(math.Round(attention)),
	}, nil
}
