package model

// Observation is one ephemeral detector sample. It is never persisted;
// only the event and subject change derived from it are.
type Observation interface {
	Source() Source
	Confidence() int
}

// Face-signal vocabulary.
const (
	GazeCenter = "center"
	GazeLeft   = "left"
	GazeRight  = "right"
	GazeUp     = "up"
	GazeDown   = "down"
	GazeAway   = "away"

	EmotionNeutral    = "neutral"
	EmotionHappy      = "happy"
	EmotionSad        = "sad"
	EmotionAngry      = "angry"
	EmotionFearful    = "fearful"
	EmotionDisgusted  = "disgusted"
	EmotionSurprised  = "surprised"
	EmotionConfused   = "confused"
	EmotionFrustrated = "frustrated"
)

// FaceObservation is produced by the face-signal detector.
type FaceObservation struct {
	Emotion       string `json:"emotion"`
	GazeDirection string `json:"gazeDirection"`
	FaceVisible   bool   `json:"faceVisible"`
	ConfidencePct int    `json:"confidence"`
	Attention     int    `json:"attention"`
}

// Source implements Observation.
func (FaceObservation) Source() Source { return SourceFace }

// Confidence implements Observation.
func (o FaceObservation) Confidence() int { return o.ConfidencePct }

// NegativeEmotion reports frustrated or confused.
func (o FaceObservation) NegativeEmotion() bool {
	return o.Emotion == EmotionFrustrated || o.Emotion == EmotionConfused
}

// Gesture-signal vocabulary.
const (
	HandVisibleDesk    = "visible_desk"
	HandHidden         = "hidden"
	HandNearFace       = "near_face"
	HandWriting        = "writing"
	HandTyping         = "typing"
	HandSuspiciousArea = "suspicious_area"
	HandPhoneArea      = "phone_area"

	PoseUpright        = "upright"
	PoseLeaningForward = "leaning_forward"
	PoseLeaningBack    = "leaning_back"
	PoseSlouching      = "slouching"
	PoseTurnedLeft     = "turned_left"
	PoseTurnedRight    = "turned_right"
	PoseLookingDown    = "looking_down"

	MovementMinimal   = "minimal"
	MovementNormal    = "normal"
	MovementHigh      = "high"
	MovementExcessive = "excessive"
)

// GestureObservation is produced by the gesture-signal detector.
type GestureObservation struct {
	HandPosition       string `json:"handPosition"`
	BodyPose           string `json:"bodyPose"`
	MovementLevel      string `json:"movementLevel"`
	SuspiciousActivity bool   `json:"suspiciousActivity"`
	ConfidencePct      int    `json:"confidence"`
	Stability          int    `json:"stability"`
}

// Source implements Observation.
func (GestureObservation) Source() Source { return SourceGesture }

// Confidence implements Observation.
func (o GestureObservation) Confidence() int { return o.ConfidencePct }

// Turned reports a left or right body turn.
func (o GestureObservation) Turned() bool {
	return o.BodyPose == PoseTurnedLeft || o.BodyPose == PoseTurnedRight
}

// IsSuspicious derives the suspicious-activity flag from the categorical fields.
func IsSuspicious(hand, pose, movement string) bool {
	switch hand {
	case HandHidden, HandSuspiciousArea, HandPhoneArea:
		return true
	}
	return movement == MovementExcessive && (pose == PoseTurnedLeft || pose == PoseTurnedRight)
}
