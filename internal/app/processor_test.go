package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/okian/proctor/internal/adapters/broadcast"
	"github.com/okian/proctor/internal/adapters/repository/memory"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type captureHub struct {
	mu   sync.Mutex
	sent []broadcast.Notification
}

func (c *captureHub) Broadcast(_ context.Context, n broadcast.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func TestKeyedMutex(t *testing.T) {
	Convey("Given a keyed mutex", t, func() {
		k := newKeyedMutex()

		Convey("When one key is contended", func() {
			var wg sync.WaitGroup
			counter := 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := k.Lock("STU101")
					counter++
					unlock()
				}()
			}
			wg.Wait()

			Convey("Then every holder ran exclusively and the key is released", func() {
				So(counter, ShouldEqual, 50)
				So(k.len(), ShouldEqual, 0)
			})
		})
	})
}

func TestProcessor(t *testing.T) {
	Convey("Given a processor over a seeded store", t, func() {
		ctx := context.Background()
		store := memory.New(ctx)
		defer func() { _ = store.Close() }()
		for _, seed := range model.DefaultRoster() {
			_, err := store.CreateSubject(ctx, seed.Subject(time.Now()))
			So(err, ShouldBeNil)
		}
		hub := &captureHub{}
		p := NewProcessor(store, hub, scoring.NewPolicy(), nil)

		Convey("When the face is not visible", func() {
			obs := model.FaceObservation{Emotion: model.EmotionNeutral, GazeDirection: model.GazeCenter, FaceVisible: false, ConfidencePct: 20, Attention: 90}
			So(p.ProcessObservation(ctx, "STU101", obs), ShouldBeNil)

			Convey("Then a high event is stored and the subject flagged", func() {
				events, err := store.ListEventsBySubject(ctx, "STU101", 5)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
				So(events[0].Kind, ShouldEqual, "face_not_visible")
				So(events[0].Priority, ShouldEqual, model.PriorityHigh)
				So(events[0].Source, ShouldEqual, model.SourceFace)

				subj, _ := store.GetSubject(ctx, "STU101")
				So(subj.Status, ShouldEqual, model.StatusFlagged)
				So(subj.BehaviorScore, ShouldEqual, 80)
				So(subj.AIConfidence, ShouldEqual, 59)
				So(subj.LastActivityAt.Equal(events[0].Timestamp), ShouldBeTrue)
			})

			Convey("Then the event is broadcast before the subject update", func() {
				So(len(hub.sent), ShouldEqual, 2)
				So(hub.sent[0].Type, ShouldEqual, broadcast.KindEvent)
				So(hub.sent[1].Type, ShouldEqual, broadcast.KindSubjectUpdate)
			})
		})

		Convey("When a phone is in view", func() {
			obs := model.GestureObservation{HandPosition: model.HandPhoneArea, BodyPose: model.PoseUpright, MovementLevel: model.MovementMinimal, SuspiciousActivity: true, ConfidencePct: 90, Stability: 80}
			So(p.ProcessObservation(ctx, "STU104", obs), ShouldBeNil)

			events, _ := store.ListEventsBySubject(ctx, "STU104", 1)
			So(events[0].Priority, ShouldEqual, model.PriorityHigh)
			So(events[0].Score, ShouldBeLessThanOrEqualTo, 20)
		})

		Convey("When many high events for one subject race", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = p.ProcessEvent(ctx, model.Event{SubjectID: "STU105", Kind: "k", Description: "d", Score: 10, Source: model.SourceInjector, Priority: model.PriorityHigh})
				}()
			}
			wg.Wait()

			Convey("Then subject updates are broadcast in the order they were computed", func() {
				var counts []int
				for _, n := range hub.sent {
					if n.Type != broadcast.KindSubjectUpdate {
						continue
					}
					raw, err := json.Marshal(n.Data)
					So(err, ShouldBeNil)
					var s model.Subject
					So(json.Unmarshal(raw, &s), ShouldBeNil)
					counts = append(counts, s.AlertCount)
				}
				So(len(counts), ShouldEqual, 20)
				for i, c := range counts {
					So(c, ShouldEqual, i+1)
				}
			})
		})
	})
}
