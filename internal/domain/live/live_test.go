package live_test

import (
	"fmt"
	"testing"
	"time"

	live "github.com/BakulBd/GreenGuardian-sub000/internal/domain/live"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type manualClock struct {
	t time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func activeSession(id string, score int) *model.ExamSession {
	return &model.ExamSession{
		ID:          id,
		ExamID:      "exam-1",
		CandidateID: "candidate-" + id,
		State:       model.StateInProgress,
		Score:       score,
	}
}

func TestBucketBoundaries(t *testing.T) {
	Convey("Given a service with default bounds", t, func() {
		svc := live.NewService()

		Convey("Then scores land in their documented buckets", func() {
			So(svc.Bucket(100), ShouldEqual, model.RiskLow)
			So(svc.Bucket(85), ShouldEqual, model.RiskLow)
			So(svc.Bucket(84), ShouldEqual, model.RiskMedium)
			So(svc.Bucket(65), ShouldEqual, model.RiskMedium)
			So(svc.Bucket(64), ShouldEqual, model.RiskHigh)
			So(svc.Bucket(40), ShouldEqual, model.RiskHigh)
			So(svc.Bucket(39), ShouldEqual, model.RiskCritical)
			So(svc.Bucket(0), ShouldEqual, model.RiskCritical)
		})
	})

	Convey("Given a service with custom bounds", t, func() {
		svc := live.NewService(live.WithBounds(90, 70, 50))

		Convey("Then the custom boundaries apply", func() {
			So(svc.Bucket(89), ShouldEqual, model.RiskMedium)
			So(svc.Bucket(49), ShouldEqual, model.RiskCritical)
		})
	})

	Convey("Given non-descending bounds", t, func() {
		svc := live.NewService(live.WithBounds(50, 70, 90))

		Convey("Then the defaults stay in place", func() {
			So(svc.Bucket(85), ShouldEqual, model.RiskLow)
			So(svc.Bucket(39), ShouldEqual, model.RiskCritical)
		})
	})
}

func TestBuildView(t *testing.T) {
	Convey("Given sessions across all risk buckets", t, func() {
		clk := newManualClock()
		svc := live.NewService(live.WithClock(clk.Now))

		inputs := []live.Input{
			{Session: activeSession("s-low", 90), Online: true},
			{Session: activeSession("s-high", 50)},
			{Session: activeSession("s-critical", 20), Online: true},
			{Session: activeSession("s-medium", 70)},
		}

		Convey("When the view is built", func() {
			view := svc.BuildView("exam-1", inputs)

			Convey("Then rows sort critical-first", func() {
				So(view.ExamID, ShouldEqual, "exam-1")
				So(view.Sessions, ShouldHaveLength, 4)
				So(view.Sessions[0].SessionID, ShouldEqual, "s-critical")
				So(view.Sessions[1].SessionID, ShouldEqual, "s-high")
				So(view.Sessions[2].SessionID, ShouldEqual, "s-medium")
				So(view.Sessions[3].SessionID, ShouldEqual, "s-low")
			})

			Convey("And each row carries its bucket and online flag", func() {
				So(view.Sessions[0].Bucket, ShouldEqual, model.RiskCritical)
				So(view.Sessions[0].Online, ShouldBeTrue)
				So(view.Sessions[1].Bucket, ShouldEqual, model.RiskHigh)
				So(view.Sessions[1].Online, ShouldBeFalse)
			})

			Convey("And the view is stamped with the clock time", func() {
				So(view.GeneratedAt.Equal(clk.Now()), ShouldBeTrue)
			})
		})

		Convey("When two rows share a bucket", func() {
			view := svc.BuildView("exam-1", []live.Input{
				{Session: activeSession("s-b", 30)},
				{Session: activeSession("s-a", 30)},
				{Session: activeSession("s-c", 10)},
			})

			Convey("Then lower scores come first, then IDs break ties", func() {
				So(view.Sessions[0].SessionID, ShouldEqual, "s-c")
				So(view.Sessions[1].SessionID, ShouldEqual, "s-a")
				So(view.Sessions[2].SessionID, ShouldEqual, "s-b")
			})
		})

		Convey("When inputs contain terminal or missing sessions", func() {
			done := activeSession("s-done", 95)
			done.State = model.StateSubmitted

			view := svc.BuildView("exam-1", []live.Input{
				{Session: done},
				{Session: nil},
				{Session: activeSession("s-live", 80)},
			})

			Convey("Then only live sessions appear", func() {
				So(view.Sessions, ShouldHaveLength, 1)
				So(view.Sessions[0].SessionID, ShouldEqual, "s-live")
			})
		})
	})
}

func TestRecentEvents(t *testing.T) {
	Convey("Given a session with more events than the limit", t, func() {
		clk := newManualClock()
		svc := live.NewService(live.WithClock(clk.Now))

		var events []model.ViolationEvent
		for i := 1; i <= 7; i++ {
			events = append(events, model.ViolationEvent{
				Kind:    model.KindTabSwitch,
				Message: fmt.Sprintf("message %d", i),
			})
		}

		Convey("When the view is built", func() {
			view := svc.BuildView("exam-1", []live.Input{
				{Session: activeSession("s-1", 90), Events: events},
			})

			Convey("Then only the newest messages survive, newest first", func() {
				So(view.Sessions[0].RecentEvents, ShouldResemble, []string{
					"message 7", "message 6", "message 5", "message 4", "message 3",
				})
			})
		})

		Convey("When a custom limit applies", func() {
			svc := live.NewService(live.WithClock(clk.Now), live.WithRecentLimit(2))
			view := svc.BuildView("exam-1", []live.Input{
				{Session: activeSession("s-1", 90), Events: events},
			})

			Convey("Then the cap shrinks accordingly", func() {
				So(view.Sessions[0].RecentEvents, ShouldResemble, []string{"message 7", "message 6"})
			})
		})

		Convey("When a session has no events", func() {
			view := svc.BuildView("exam-1", []live.Input{
				{Session: activeSession("s-1", 90)},
			})

			Convey("Then the row carries an empty, non-nil list", func() {
				So(view.Sessions[0].RecentEvents, ShouldNotBeNil)
				So(view.Sessions[0].RecentEvents, ShouldBeEmpty)
			})
		})
	})
}

func TestCriticalAlerting(t *testing.T) {
	Convey("Given a service with a manual clock", t, func() {
		clk := newManualClock()
		svc := live.NewService(live.WithClock(clk.Now))

		Convey("When a session drops into critical", func() {
			bucket, alert := svc.Evaluate("s-1", 20)

			Convey("Then the first evaluation raises an alert", func() {
				So(bucket, ShouldEqual, model.RiskCritical)
				So(alert, ShouldBeTrue)
				So(svc.AlertPending("s-1"), ShouldBeTrue)
			})

			Convey("And a second evaluation inside the window stays quiet", func() {
				_, again := svc.Evaluate("s-1", 15)
				So(again, ShouldBeFalse)
			})

			Convey("And the alert re-fires after the interval passes", func() {
				clk.Advance(11 * time.Second)
				_, again := svc.Evaluate("s-1", 15)
				So(again, ShouldBeTrue)
			})

			Convey("And acknowledgement silences it for the episode", func() {
				svc.Acknowledge("s-1")
				So(svc.AlertPending("s-1"), ShouldBeFalse)

				clk.Advance(11 * time.Second)
				_, again := svc.Evaluate("s-1", 15)
				So(again, ShouldBeFalse)
			})

			Convey("And leaving then re-entering critical starts a new episode", func() {
				svc.Acknowledge("s-1")

				_, alert := svc.Evaluate("s-1", 90)
				So(alert, ShouldBeFalse)
				So(svc.Bucket(90), ShouldEqual, model.RiskLow)

				clk.Advance(11 * time.Second)
				_, alert = svc.Evaluate("s-1", 20)
				So(alert, ShouldBeTrue)
				So(svc.AlertPending("s-1"), ShouldBeTrue)
			})
		})

		Convey("When several sessions go critical inside one window", func() {
			_, first := svc.Evaluate("s-1", 20)
			_, second := svc.Evaluate("s-2", 10)

			Convey("Then the limiter spaces alerts across all of them", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(svc.AlertPending("s-2"), ShouldBeTrue)

				clk.Advance(11 * time.Second)
				_, delayed := svc.Evaluate("s-2", 10)
				So(delayed, ShouldBeTrue)
			})
		})

		Convey("When a healthy session is evaluated", func() {
			bucket, alert := svc.Evaluate("s-3", 95)

			Convey("Then no alert state accrues", func() {
				So(bucket, ShouldEqual, model.RiskLow)
				So(alert, ShouldBeFalse)
				So(svc.AlertPending("s-3"), ShouldBeFalse)
			})
		})

		Convey("When a session is forgotten", func() {
			svc.Evaluate("s-4", 20)
			So(svc.AlertPending("s-4"), ShouldBeTrue)

			svc.Forget("s-4")

			Convey("Then its alert bookkeeping disappears", func() {
				So(svc.AlertPending("s-4"), ShouldBeFalse)
			})
		})
	})
}
