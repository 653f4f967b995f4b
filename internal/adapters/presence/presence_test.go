package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type manualClock struct {
	t time.Time
}

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryTracker(t *testing.T) {
	Convey("Given an in-memory presence tracker", t, func() {
		ctx := context.Background()
		clk := &manualClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
		tracker := NewMemoryTracker(WithTTL(30*time.Second), WithClock(clk.Now))

		Convey("An unknown session is offline", func() {
			online, err := tracker.Online(ctx, "sess-1")
			So(err, ShouldBeNil)
			So(online, ShouldBeFalse)
		})

		Convey("A fresh heartbeat flips the session online", func() {
			So(tracker.Heartbeat(ctx, "sess-1"), ShouldBeNil)

			online, err := tracker.Online(ctx, "sess-1")
			So(err, ShouldBeNil)
			So(online, ShouldBeTrue)

			Convey("And it stays online up to the TTL", func() {
				clk.Advance(30 * time.Second)

				online, err := tracker.Online(ctx, "sess-1")
				So(err, ShouldBeNil)
				So(online, ShouldBeTrue)
			})

			Convey("And it goes offline past the TTL", func() {
				clk.Advance(31 * time.Second)

				online, err := tracker.Online(ctx, "sess-1")
				So(err, ShouldBeNil)
				So(online, ShouldBeFalse)

				Convey("Until the next heartbeat", func() {
					So(tracker.Heartbeat(ctx, "sess-1"), ShouldBeNil)

					online, err := tracker.Online(ctx, "sess-1")
					So(err, ShouldBeNil)
					So(online, ShouldBeTrue)
				})
			})
		})

		Convey("Forget drops the entry", func() {
			So(tracker.Heartbeat(ctx, "sess-1"), ShouldBeNil)
			So(tracker.Forget(ctx, "sess-1"), ShouldBeNil)

			online, err := tracker.Online(ctx, "sess-1")
			So(err, ShouldBeNil)
			So(online, ShouldBeFalse)
		})

		Convey("Sessions are tracked independently", func() {
			So(tracker.Heartbeat(ctx, "sess-1"), ShouldBeNil)
			clk.Advance(20 * time.Second)
			So(tracker.Heartbeat(ctx, "sess-2"), ShouldBeNil)
			clk.Advance(15 * time.Second)

			// sess-1 is 35s stale, sess-2 only 15s
			online1, err := tracker.Online(ctx, "sess-1")
			So(err, ShouldBeNil)
			So(online1, ShouldBeFalse)

			online2, err := tracker.Online(ctx, "sess-2")
			So(err, ShouldBeNil)
			So(online2, ShouldBeTrue)
		})

		Convey("Close clears all entries", func() {
			So(tracker.Heartbeat(ctx, "sess-1"), ShouldBeNil)
			So(tracker.Close(), ShouldBeNil)

			online, err := tracker.Online(ctx, "sess-1")
			So(err, ShouldBeNil)
			So(online, ShouldBeFalse)
		})
	})
}

func TestMemoryTrackerDefaults(t *testing.T) {
	Convey("Given a tracker with default options", t, func() {
		ctx := context.Background()

		Convey("Heartbeats use the wall clock", func() {
			tracker := NewMemoryTracker()
			So(tracker.Heartbeat(ctx, "sess-1"), ShouldBeNil)

			online, err := tracker.Online(ctx, "sess-1")
			So(err, ShouldBeNil)
			So(online, ShouldBeTrue)
		})

		Convey("Invalid options are ignored", func() {
			tracker := NewMemoryTracker(WithTTL(-time.Second), WithClock(nil))
			So(tracker.Heartbeat(ctx, "sess-1"), ShouldBeNil)

			online, err := tracker.Online(ctx, "sess-1")
			So(err, ShouldBeNil)
			So(online, ShouldBeTrue)
		})
	})
}

func TestMemoryTrackerConcurrency(t *testing.T) {
	Convey("Given concurrent heartbeats and queries", t, func() {
		ctx := context.Background()
		tracker := NewMemoryTracker()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				sessionID := fmt.Sprintf("sess-%d", id)
				for j := 0; j < 100; j++ {
					_ = tracker.Heartbeat(ctx, sessionID)
					_, _ = tracker.Online(ctx, sessionID)
				}
			}(i)
		}
		wg.Wait()

		Convey("All sessions end up online", func() {
			for i := 0; i < 10; i++ {
				online, err := tracker.Online(ctx, fmt.Sprintf("sess-%d", i))
				So(err, ShouldBeNil)
				So(online, ShouldBeTrue)
			}
		})
	})
}
