package schedule_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/proctor/internal/adapters/schedule"
	"github.com/okian/proctor/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithOutput(io.Discard))
	os.Exit(m.Run())
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestPeriodic(t *testing.T) {
	Convey("Given a periodic task", t, func() {
		var calls atomic.Int32

		Convey("When it runs for a while", func() {
			p := schedule.NewPeriodic(10*time.Millisecond, func(context.Context) error {
				calls.Add(1)
				return nil
			}, schedule.WithName("counter"))
			go p.Run(context.Background())

			Convey("Then it ticks repeatedly until shut down", func() {
				So(waitFor(func() bool { return calls.Load() >= 3 }), ShouldBeTrue)
				So(p.Shutdown(context.Background()), ShouldBeNil)
				after := calls.Load()
				time.Sleep(40 * time.Millisecond)
				So(calls.Load(), ShouldEqual, after)
				So(p.Name(), ShouldEqual, "counter")
			})
		})

		Convey("When an iteration fails", func() {
			p := schedule.NewPeriodic(5*time.Millisecond, func(context.Context) error {
				calls.Add(1)
				return errors.New("boom")
			})
			go p.Run(context.Background())

			Convey("Then the loop keeps going", func() {
				So(waitFor(func() bool { return calls.Load() >= 3 }), ShouldBeTrue)
				So(p.Shutdown(context.Background()), ShouldBeNil)
			})
		})

		Convey("When stopped during a slow iteration", func() {
			entered := make(chan struct{}, 1)
			release := make(chan struct{})
			p := schedule.NewPeriodic(5*time.Millisecond, func(context.Context) error {
				calls.Add(1)
				select {
				case entered <- struct{}{}:
				default:
				}
				<-release
				return nil
			})
			go p.Run(context.Background())
			<-entered
			p.Stop()

			Convey("Then Stop returns without waiting and no further iteration starts", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
				defer cancel()
				So(p.Shutdown(ctx), ShouldNotBeNil)

				close(release)
				So(p.Shutdown(context.Background()), ShouldBeNil)
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the context is canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			p := schedule.NewPeriodic(time.Hour, func(context.Context) error { return nil },
				schedule.WithInitialDelay(time.Hour))
			done := make(chan struct{})
			go func() {
				p.Run(ctx)
				close(done)
			}()
			cancel()

			So(waitFor(func() bool {
				select {
				case <-done:
					return true
				default:
					return false
				}
			}), ShouldBeTrue)
		})

		Convey("When the interval is not positive", func() {
			p := schedule.NewPeriodic(0, func(context.Context) error { calls.Add(1); return nil })
			p.Run(context.Background())
			So(calls.Load(), ShouldEqual, 0)
		})
	})
}

func TestGroup(t *testing.T) {
	Convey("Given a group of two tasks", t, func() {
		var a, b atomic.Int32
		g := schedule.NewGroup(
			schedule.NewPeriodic(5*time.Millisecond, func(context.Context) error { a.Add(1); return nil }),
			schedule.NewPeriodic(5*time.Millisecond, func(context.Context) error { b.Add(1); return nil },
				schedule.WithInitialDelay(2*time.Millisecond)),
		)
		g.Start(context.Background())

		Convey("Then both tick and both stop together", func() {
			So(waitFor(func() bool { return a.Load() > 1 && b.Load() > 1 }), ShouldBeTrue)
			So(g.Shutdown(context.Background()), ShouldBeNil)
			ca, cb := a.Load(), b.Load()
			time.Sleep(30 * time.Millisecond)
			So(a.Load(), ShouldEqual, ca)
			So(b.Load(), ShouldEqual, cb)
		})
	})
}
