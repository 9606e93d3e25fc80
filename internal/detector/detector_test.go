package detector

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithOutput(io.Discard))
	os.Exit(m.Run())
}

type fakeLister struct {
	subjects []model.Subject
	err      error
}

func (f *fakeLister) ListActiveSubjects(context.Context) ([]model.Subject, error) {
	return f.subjects, f.err
}

type recorder struct {
	mu     sync.Mutex
	seen   []string
	events []model.Event
	failOn string
}

func (r *recorder) ProcessObservation(_ context.Context, id string, _ model.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, id)
	if id == r.failOn {
		return errors.New("store down")
	}
	return nil
}

func (r *recorder) ProcessEvent(_ context.Context, e model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func roster(ids ...string) []model.Subject {
	out := make([]model.Subject, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Subject{ID: id, Active: true})
	}
	return out
}

func TestFaceObservations(t *testing.T) {
	Convey("Given a seeded face detector", t, func() {
		f := NewFace(NewRandom(42))
		So(f.Source(), ShouldEqual, model.SourceFace)

		Convey("Then every observation stays within its vocabulary and range", func() {
			for i := 0; i < 500; i++ {
				obs, err := f.Analyze(context.Background(), "STU101")
				So(err, ShouldBeNil)
				face, ok := obs.(model.FaceObservation)
				So(ok, ShouldBeTrue)
				So(emotions, ShouldContain, face.Emotion)
				So(gazeDirections, ShouldContain, face.GazeDirection)
				So(face.ConfidencePct, ShouldBeBetweenOrEqual, 0, 100)
				So(face.Attention, ShouldBeBetweenOrEqual, 0, 100)
				if !face.FaceVisible {
					So(face.ConfidencePct, ShouldBeLessThanOrEqualTo, 30)
				}
			}
		})

		Convey("Then a canceled context is reported", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := f.Analyze(ctx, "STU101")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestGestureObservations(t *testing.T) {
	Convey("Given a seeded gesture detector", t, func() {
		g := NewGesture(NewRandom(7))
		So(g.Source(), ShouldEqual, model.SourceGesture)

		Convey("Then confidence is clamped and suspicion follows the posture", func() {
			for i := 0; i < 500; i++ {
				obs, err := g.Analyze(context.Background(), "STU102")
				So(err, ShouldBeNil)
				gst := obs.(model.GestureObservation)
				So(gst.ConfidencePct, ShouldBeBetweenOrEqual, 30, 100)
				So(gst.Stability, ShouldBeBetweenOrEqual, 0, 100)
				So(gst.SuspiciousActivity, ShouldEqual,
					model.IsSuspicious(gst.HandPosition, gst.BodyPose, gst.MovementLevel))
			}
		})
	})
}

func TestUnitTick(t *testing.T) {
	Convey("Given a unit over three subjects", t, func() {
		lister := &fakeLister{subjects: roster("STU101", "STU102", "STU103")}
		rec := &recorder{failOn: "STU102"}
		u := NewUnit(NewFace(NewRandom(1)), lister, rec, 0)

		Convey("When one subject fails to process", func() {
			err := u.Tick(context.Background())

			Convey("Then the rest are still processed in order", func() {
				So(err, ShouldBeNil)
				So(rec.seen, ShouldResemble, []string{"STU101", "STU102", "STU103"})
			})
		})

		Convey("When the roster cannot be read", func() {
			lister.err = errors.New("closed")
			So(u.Tick(context.Background()), ShouldNotBeNil)
			So(rec.seen, ShouldBeEmpty)
		})

		Convey("Then its task is named after the source", func() {
			So(u.Task().Name(), ShouldEqual, string(model.SourceFace))
		})
	})
}

func TestInjector(t *testing.T) {
	Convey("Given an injector", t, func() {
		rec := &recorder{}
		lister := &fakeLister{subjects: roster("STU104", "STU105")}
		in := NewInjector(NewRandom(99), lister, rec, 0)

		Convey("Then generated events follow the kind rules", func() {
			for i := 0; i < 300; i++ {
				e := in.Generate("STU104")
				So(e.Validate(), ShouldBeNil)
				So(e.Source, ShouldEqual, model.SourceInjector)
				So(injectorKinds, ShouldContain, e.Kind)
				switch e.Kind {
				case "gaze_away", "face_not_visible", "suspicious_movement":
					So(e.Priority, ShouldNotEqual, model.PriorityNormal)
					So(e.Score, ShouldBeBetweenOrEqual, 30, 69)
				case "normal_behavior", "focused_behavior":
					So(e.Priority, ShouldEqual, model.PriorityNormal)
					So(e.Score, ShouldBeBetweenOrEqual, 80, 99)
				default:
					So(e.Priority, ShouldEqual, model.PriorityWarning)
					So(e.Score, ShouldBeBetweenOrEqual, 50, 79)
				}
			}
		})

		Convey("When it ticks", func() {
			So(in.Tick(context.Background()), ShouldBeNil)

			Convey("Then exactly one event reaches an active subject", func() {
				So(len(rec.events), ShouldEqual, 1)
				So([]string{"STU104", "STU105"}, ShouldContain, rec.events[0].SubjectID)
			})
		})

		Convey("When nobody is active", func() {
			lister.subjects = nil
			So(in.Tick(context.Background()), ShouldBeNil)
			So(rec.events, ShouldBeEmpty)
		})
	})
}
