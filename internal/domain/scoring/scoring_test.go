package scoring_test

import (
	"testing"
	"time"

	"github.com/okian/proctor/internal/domain/model"
	scoring "github.com/okian/proctor/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func intPtr(v int) *int { return &v }

func TestClassifyFace(t *testing.T) {
	Convey("Given face observations", t, func() {
		Convey("When the face is not visible", func() {
			c := scoring.ClassifyFace(model.FaceObservation{FaceVisible: false, GazeDirection: model.GazeAway, ConfidencePct: 99, Attention: 90})

			Convey("Then it is a high face_not_visible event with score 20", func() {
				So(c.Kind, ShouldEqual, "face_not_visible")
				So(c.Priority, ShouldEqual, model.PriorityHigh)
				So(c.Score, ShouldEqual, 20)
			})
		})

		Convey("When gaze is away", func() {
			confident := scoring.ClassifyFace(model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeAway, ConfidencePct: 71, Attention: 10})
			unsure := scoring.ClassifyFace(model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeAway, ConfidencePct: 70, Attention: 55})

			Convey("Then priority depends on confidence and score is at least 30", func() {
				So(confident.Kind, ShouldEqual, "gaze_away")
				So(confident.Priority, ShouldEqual, model.PriorityHigh)
				So(confident.Score, ShouldEqual, 30)
				So(unsure.Priority, ShouldEqual, model.PriorityWarning)
				So(unsure.Score, ShouldEqual, 55)
			})
		})

		Convey("When gaze is to the side", func() {
			left := scoring.ClassifyFace(model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeLeft, ConfidencePct: 81, Attention: 60})
			right := scoring.ClassifyFace(model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeRight, ConfidencePct: 80, Attention: 60})

			So(left.Kind, ShouldEqual, "gaze_left")
			So(left.Priority, ShouldEqual, model.PriorityWarning)
			So(right.Kind, ShouldEqual, "gaze_right")
			So(right.Priority, ShouldEqual, model.PriorityNormal)
		})

		Convey("When the subject is frustrated", func() {
			c := scoring.ClassifyFace(model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeCenter, Emotion: model.EmotionFrustrated, ConfidencePct: 60, Attention: 20})

			So(c.Kind, ShouldEqual, "emotional_distress")
			So(c.Priority, ShouldEqual, model.PriorityWarning)
			So(c.Score, ShouldEqual, 40)
			So(c.Description, ShouldContainSubstring, "frustrated")
		})

		Convey("When focused", func() {
			c := scoring.ClassifyFace(model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeCenter, Emotion: model.EmotionHappy, ConfidencePct: 90, Attention: 95})

			So(c.Kind, ShouldEqual, "focused_behavior")
			So(c.Priority, ShouldEqual, model.PriorityNormal)
			So(c.Score, ShouldEqual, 100)
		})

		Convey("When nothing matches", func() {
			c := scoring.ClassifyFace(model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeUp, Emotion: model.EmotionSad, ConfidencePct: 90, Attention: 64})

			So(c.Kind, ShouldEqual, "normal_behavior")
			So(c.Score, ShouldEqual, 64)
		})
	})
}

func TestClassifyGesture(t *testing.T) {
	Convey("Given gesture observations", t, func() {
		suspicious := func(hand, pose, movement string) model.GestureObservation {
			return model.GestureObservation{
				HandPosition:       hand,
				BodyPose:           pose,
				MovementLevel:      movement,
				SuspiciousActivity: model.IsSuspicious(hand, pose, movement),
				ConfidencePct:      90,
				Stability:          70,
			}
		}

		Convey("When the hand is in the phone area", func() {
			c := scoring.ClassifyGesture(suspicious(model.HandPhoneArea, model.PoseUpright, model.MovementMinimal))

			Convey("Then it is high priority with a low score", func() {
				So(c.Kind, ShouldEqual, "phone_interaction")
				So(c.Priority, ShouldEqual, model.PriorityHigh)
				So(c.Score, ShouldBeLessThanOrEqualTo, 20)
			})
		})

		Convey("When suspicious variants are observed", func() {
			So(scoring.ClassifyGesture(suspicious(model.HandHidden, model.PoseUpright, model.MovementNormal)).Kind, ShouldEqual, "hidden_hands")
			So(scoring.ClassifyGesture(suspicious(model.HandSuspiciousArea, model.PoseUpright, model.MovementNormal)).Priority, ShouldEqual, model.PriorityWarning)
			c := scoring.ClassifyGesture(suspicious(model.HandWriting, model.PoseTurnedLeft, model.MovementExcessive))
			So(c.Kind, ShouldEqual, "excessive_movement")
			So(c.Score, ShouldEqual, 70)

			o := suspicious(model.HandWriting, model.PoseTurnedLeft, model.MovementExcessive)
			o.Stability = 20
			So(scoring.ClassifyGesture(o).Score, ShouldEqual, 45)
		})

		Convey("When only the hand position is reported", func() {
			bare := func(hand string) model.GestureObservation {
				return model.GestureObservation{HandPosition: hand, ConfidencePct: 90, Stability: 70}
			}

			Convey("Then the hand rules still fire", func() {
				c := scoring.ClassifyGesture(bare(model.HandPhoneArea))
				So(c.Kind, ShouldEqual, "phone_interaction")
				So(c.Priority, ShouldEqual, model.PriorityHigh)
				So(c.Score, ShouldBeLessThanOrEqualTo, 20)

				So(scoring.ClassifyGesture(bare(model.HandHidden)).Kind, ShouldEqual, "hidden_hands")
				So(scoring.ClassifyGesture(bare(model.HandSuspiciousArea)).Kind, ShouldEqual, "suspicious_movement")
			})
		})

		Convey("When movement is excessive without a turn", func() {
			c := scoring.ClassifyGesture(suspicious(model.HandWriting, model.PoseUpright, model.MovementExcessive))
			So(c.Kind, ShouldEqual, "high_movement")
			So(c.Score, ShouldEqual, 70)
		})

		Convey("When the body is turned", func() {
			o := suspicious(model.HandVisibleDesk, model.PoseTurnedRight, model.MovementNormal)
			o.Stability = 30
			c := scoring.ClassifyGesture(o)
			So(c.Kind, ShouldEqual, "head_turn_right")
			So(c.Priority, ShouldEqual, model.PriorityWarning)
			So(c.Score, ShouldEqual, 60)

			o.ConfidencePct = 75
			So(scoring.ClassifyGesture(o).Priority, ShouldEqual, model.PriorityNormal)
		})

		Convey("When writing or sitting upright", func() {
			w := scoring.ClassifyGesture(suspicious(model.HandTyping, model.PoseSlouching, model.MovementNormal))
			So(w.Kind, ShouldEqual, "normal_activity")
			So(w.Score, ShouldEqual, 80)

			f := scoring.ClassifyGesture(suspicious(model.HandVisibleDesk, model.PoseUpright, model.MovementMinimal))
			So(f.Kind, ShouldEqual, "focused_posture")
			So(f.Score, ShouldEqual, 75)

			n := scoring.ClassifyGesture(suspicious(model.HandNearFace, model.PoseLeaningBack, model.MovementHigh))
			So(n.Kind, ShouldEqual, "normal_behavior")
		})
	})
}

func TestClassifyDispatch(t *testing.T) {
	Convey("Given the generic classifier", t, func() {
		c, err := scoring.Classify(model.FaceObservation{FaceVisible: false})
		So(err, ShouldBeNil)
		So(c.Kind, ShouldEqual, "face_not_visible")

		c, err = scoring.Classify(&model.GestureObservation{HandPosition: model.HandPhoneArea, SuspiciousActivity: true})
		So(err, ShouldBeNil)
		So(c.Kind, ShouldEqual, "phone_interaction")

		_, err = scoring.Classify(nil)
		So(err, ShouldNotBeNil)
	})
}

func TestPolicyApply(t *testing.T) {
	Convey("Given a default policy", t, func() {
		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		p := scoring.NewPolicy()
		base := model.Subject{ID: "STU101", BehaviorScore: 50, Status: model.StatusNormal, AIConfidence: 80, Active: true}

		Convey("When a high face event is applied", func() {
			s := p.Apply(base, model.SourceFace, model.PriorityHigh, intPtr(61), now)

			Convey("Then the subject is flagged and penalized", func() {
				So(s.Status, ShouldEqual, model.StatusFlagged)
				So(s.BehaviorScore, ShouldEqual, 35)
				So(s.AlertCount, ShouldEqual, 1)
				So(s.AIConfidence, ShouldEqual, 71)
				So(s.LastActivityAt, ShouldEqual, now)
			})
		})

		Convey("When the penalty would cross the floor", func() {
			low := base
			low.BehaviorScore = 22
			So(p.Apply(low, model.SourceGesture, model.PriorityHigh, nil, now).BehaviorScore, ShouldEqual, 15)
			So(p.Apply(low, model.SourceFace, model.PriorityWarning, nil, now).BehaviorScore, ShouldEqual, 30)
			low.BehaviorScore = 3
			So(p.Apply(low, model.SourceAPI, model.PriorityHigh, nil, now).BehaviorScore, ShouldEqual, 0)
		})

		Convey("When warnings are applied", func() {
			s1 := p.Apply(base, model.SourceGesture, model.PriorityWarning, nil, now)
			s2 := p.Apply(s1, model.SourceGesture, model.PriorityWarning, nil, now)

			Convey("Then every second warning raises an alert", func() {
				So(s1.Status, ShouldEqual, model.StatusWarning)
				So(s1.WarningCount, ShouldEqual, 1)
				So(s1.AlertCount, ShouldEqual, 0)
				So(s2.WarningCount, ShouldEqual, 2)
				So(s2.AlertCount, ShouldEqual, 1)
				So(s1.AIConfidence, ShouldEqual, 80)
			})
		})

		Convey("When a flagged subject receives warnings and normals", func() {
			flagged := base
			flagged.Status = model.StatusFlagged
			s := p.Apply(flagged, model.SourceFace, model.PriorityWarning, intPtr(90), now)
			s = p.Apply(s, model.SourceFace, model.PriorityNormal, intPtr(90), now)

			Convey("Then the status never downgrades", func() {
				So(s.Status, ShouldEqual, model.StatusFlagged)
			})
		})

		Convey("When normal events are applied", func() {
			top := base
			top.BehaviorScore = 99
			s := p.Apply(top, model.SourceGesture, model.PriorityNormal, intPtr(100), now)

			Convey("Then the bonus is capped and no alert is raised", func() {
				So(s.BehaviorScore, ShouldEqual, 100)
				So(s.AlertCount, ShouldEqual, 0)
				So(s.Status, ShouldEqual, model.StatusNormal)
				So(s.AIConfidence, ShouldEqual, 90)
			})
		})

		Convey("When the source is unknown", func() {
			s := p.Apply(base, model.Source("proctor_desk"), model.PriorityWarning, nil, now)
			So(s.BehaviorScore, ShouldEqual, 45)
		})
	})

	Convey("Given a policy alerting on every warning", t, func() {
		p := scoring.NewPolicy(scoring.WithWarningAlertEvery(1), scoring.WithWarningAlertEvery(0))
		So(p.WarningAlertEvery(), ShouldEqual, 1)

		s := p.Apply(model.Subject{BehaviorScore: 80}, model.SourceFace, model.PriorityWarning, nil, time.Now())
		So(s.AlertCount, ShouldEqual, 1)
	})

	Convey("Given a policy with an overridden rule", t, func() {
		p := scoring.NewPolicy(scoring.WithRule(model.SourceAPI, scoring.Rule{NormalBonus: 7}))
		s := p.Apply(model.Subject{BehaviorScore: 10}, model.SourceAPI, model.PriorityNormal, nil, time.Now())
		So(s.BehaviorScore, ShouldEqual, 17)
	})
}

func TestOverallRisk(t *testing.T) {
	Convey("Given face and gesture observations", t, func() {
		calmFace := model.FaceObservation{FaceVisible: true, GazeDirection: model.GazeCenter, Emotion: model.EmotionNeutral, ConfidencePct: 90, Attention: 95}
		calmGesture := model.GestureObservation{HandPosition: model.HandWriting, BodyPose: model.PoseUpright, MovementLevel: model.MovementMinimal, ConfidencePct: 90, Stability: 90}

		Convey("When nothing is concerning", func() {
			risk := scoring.OverallRisk(calmFace, calmGesture)
			So(risk, ShouldEqual, 0)
			So(scoring.Recommendation(risk), ShouldEqual, scoring.RecommendContinue)
		})

		Convey("When every factor fires", func() {
			face := model.FaceObservation{FaceVisible: false, GazeDirection: model.GazeAway, Emotion: model.EmotionConfused, ConfidencePct: 90, Attention: 10}
			gesture := model.GestureObservation{HandPosition: model.HandHidden, MovementLevel: model.MovementExcessive, SuspiciousActivity: true, ConfidencePct: 90, Stability: 10}
			risk := scoring.OverallRisk(face, gesture)
			So(risk, ShouldEqual, 100)
			So(scoring.Recommendation(risk), ShouldEqual, scoring.RecommendImmediate)
		})

		Convey("When confidence is low", func() {
			face := calmFace
			face.GazeDirection = model.GazeAway
			face.ConfidencePct = 40
			gesture := calmGesture
			gesture.ConfidencePct = 50

			Convey("Then the risk is damped", func() {
				So(scoring.OverallRisk(face, gesture), ShouldEqual, 21)
			})
		})
	})

	Convey("Given the recommendation bands", t, func() {
		So(scoring.Recommendation(81), ShouldEqual, scoring.RecommendImmediate)
		So(scoring.Recommendation(80), ShouldEqual, scoring.RecommendClose)
		So(scoring.Recommendation(61), ShouldEqual, scoring.RecommendClose)
		So(scoring.Recommendation(60), ShouldEqual, scoring.RecommendIncreased)
		So(scoring.Recommendation(41), ShouldEqual, scoring.RecommendIncreased)
		So(scoring.Recommendation(40), ShouldEqual, scoring.RecommendNormal)
		So(scoring.Recommendation(21), ShouldEqual, scoring.RecommendNormal)
		So(scoring.Recommendation(20), ShouldEqual, scoring.RecommendContinue)
	})
}
