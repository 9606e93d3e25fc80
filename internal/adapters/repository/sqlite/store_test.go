package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openTempStore(t *testing.T, opts ...repository.Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proctor.db")
	s, err := Open(context.Background(), path, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proctor.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}
}

func TestUpSection(t *testing.T) {
	t.Parallel()

	got := upSection("-- +migrate Up\nCREATE TABLE a (x INT);\n-- +migrate Down\nDROP TABLE a;")
	if got != "\nCREATE TABLE a (x INT);\n" {
		t.Fatalf("up section = %q", got)
	}
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("plain content = %q", got)
	}
}

func TestSQLiteSubjects(t *testing.T) {
	Convey("Given a sqlite store with seeded subjects", t, func() {
		ctx := context.Background()
		now := time.Date(2026, 2, 22, 16, 40, 0, 0, time.UTC)
		clock := now
		s := openTempStore(t, repository.WithClock(func() time.Time { return clock }))

		for _, seed := range model.DefaultRoster()[:3] {
			_, err := s.CreateSubject(ctx, seed.Subject(now))
			So(err, ShouldBeNil)
		}

		Convey("When listing", func() {
			list, err := s.ListActiveSubjects(ctx)

			Convey("Then subjects come back in creation order with full state", func() {
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 3)
				So(list[0].ID, ShouldEqual, "STU101")
				So(list[2].ID, ShouldEqual, "STU103")
				So(list[2].Status, ShouldEqual, model.StatusFlagged)
				So(list[2].AlertCount, ShouldEqual, 5)
				So(list[0].LastActivityAt.Equal(now), ShouldBeTrue)
				So(list[0].Active, ShouldBeTrue)
			})
		})

		Convey("When creating a duplicate", func() {
			_, err := s.CreateSubject(ctx, model.Subject{ID: "STU101", Name: "dup"})
			So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
		})

		Convey("When updating", func() {
			got, err := s.UpdateSubject(ctx, "STU102", func(cur model.Subject) (model.Subject, error) {
				cur.BehaviorScore = -20
				cur.WarningCount = 4
				cur.Status = model.StatusFlagged
				return cur, nil
			})
			So(err, ShouldBeNil)
			So(got.BehaviorScore, ShouldEqual, 0)

			stored, err := s.GetSubject(ctx, "STU102")
			So(err, ShouldBeNil)
			So(stored.WarningCount, ShouldEqual, 4)
			So(stored.Status, ShouldEqual, model.StatusFlagged)
		})

		Convey("When a mutation fails the transaction rolls back", func() {
			_, err := s.UpdateSubject(ctx, "STU101", func(cur model.Subject) (model.Subject, error) {
				return cur, fmt.Errorf("nope")
			})
			So(err, ShouldNotBeNil)

			_, err = s.UpdateSubject(ctx, "ghost", func(cur model.Subject) (model.Subject, error) { return cur, nil })
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When updates race", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.UpdateSubject(ctx, "STU101", func(cur model.Subject) (model.Subject, error) {
						cur.AlertCount++
						return cur, nil
					})
				}()
			}
			wg.Wait()
			got, _ := s.GetSubject(ctx, "STU101")
			So(got.AlertCount, ShouldEqual, 20)
		})

		Convey("When a subject is deactivated", func() {
			clock = now.Add(75 * time.Minute)
			So(s.DeactivateSubject(ctx, "STU103"), ShouldBeNil)
			stats, err := s.DashboardStats(ctx)
			all, _ := s.ListSubjects(ctx)

			Convey("Then stats ignore it", func() {
				So(err, ShouldBeNil)
				So(stats.ActiveStudents, ShouldEqual, 2)
				So(stats.FlaggedStudents, ShouldEqual, 0)
				So(stats.TotalAlerts, ShouldEqual, 2)
				So(stats.SessionDuration, ShouldEqual, "1h 15m")
				So(len(all), ShouldEqual, 3)
			})
		})
	})
}

func TestSQLiteEvents(t *testing.T) {
	Convey("Given a sqlite store retaining three events", t, func() {
		ctx := context.Background()
		base := time.Date(2026, 2, 22, 16, 40, 0, 0, time.UTC)
		clock := base
		n := 0
		s := openTempStore(t,
			repository.WithClock(func() time.Time { return clock }),
			repository.WithEventRetention(3),
			repository.WithIDGenerator(func() string { n++; return fmt.Sprintf("ev-%d", n) }),
		)
		add := func(subject string, p model.Priority) model.Event {
			e, err := s.CreateEvent(ctx, model.Event{SubjectID: subject, Kind: "gaze_away", Description: "d", Score: 30, Source: model.SourceFace, Priority: p})
			So(err, ShouldBeNil)
			return e
		}

		Convey("When events share a timestamp", func() {
			add("STU101", model.PriorityHigh)
			add("STU101", model.PriorityWarning)
			list, err := s.ListRecentEvents(ctx, 5)

			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 2)
			So(list[0].ID, ShouldEqual, "ev-2")
			So(list[0].Priority, ShouldEqual, model.PriorityWarning)
			So(list[1].Source, ShouldEqual, model.SourceFace)
			So(list[1].Timestamp.Equal(base), ShouldBeTrue)
		})

		Convey("When retention is exceeded", func() {
			for i := 0; i < 5; i++ {
				add("STU101", model.PriorityNormal)
				clock = clock.Add(time.Second)
			}
			list, _ := s.ListRecentEvents(ctx, 10)
			So(len(list), ShouldEqual, 3)
			So(list[0].ID, ShouldEqual, "ev-5")
			So(list[2].ID, ShouldEqual, "ev-3")
		})

		Convey("When filtering by subject", func() {
			add("STU101", model.PriorityNormal)
			clock = clock.Add(time.Second)
			add("STU102", model.PriorityNormal)
			list, err := s.ListEventsBySubject(ctx, "STU102", 10)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 1)
			So(list[0].ID, ShouldEqual, "ev-2")

			_, err = s.ListEventsBySubject(ctx, "STU102", -1)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When deleting", func() {
			add("STU101", model.PriorityNormal)
			add("STU101", model.PriorityNormal)
			So(s.DeleteEvent(ctx, "ev-1"), ShouldBeNil)
			So(errors.Is(s.DeleteEvent(ctx, "ev-1"), repository.ErrNotFound), ShouldBeTrue)

			removed, err := s.DeleteAllEvents(ctx)
			So(err, ShouldBeNil)
			So(removed, ShouldEqual, 1)
		})

		Convey("When an id is reused", func() {
			_, err := s.CreateEvent(ctx, model.Event{ID: "fixed", SubjectID: "a", Kind: "k", Description: "d", Source: model.SourceAPI, Priority: model.PriorityNormal})
			So(err, ShouldBeNil)
			_, err = s.CreateEvent(ctx, model.Event{ID: "fixed", SubjectID: "a", Kind: "k", Description: "d", Source: model.SourceAPI, Priority: model.PriorityNormal})
			So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
		})
	})
}
