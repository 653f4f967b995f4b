package signal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	signal "github.com/BakulBd/GreenGuardian-sub000/internal/signal"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSimulatorCleanSamples(t *testing.T) {
	Convey("Given a simulator with no script", t, func() {
		clk := newManualClock()
		sim := signal.NewSimulator(signal.WithSampleClock(clk.Now))

		Convey("When samples are drawn", func() {
			first, err1 := sim.Sample(context.Background())
			second, err2 := sim.Sample(context.Background())

			Convey("Then every sample is a clean single face", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.FaceCount, ShouldEqual, 1)
				So(first.GazeAway, ShouldBeFalse)
				So(first.Objects, ShouldBeEmpty)
				So(first.FaceConfidences, ShouldHaveLength, 1)
				So(first.FaceConfidences[0], ShouldBeBetween, 0.8, 1.0)
				So(first.FaceBoxes, ShouldHaveLength, 1)
				So(first.CapturedAt.Equal(clk.Now()), ShouldBeTrue)
			})

			Convey("And sample IDs are unique and frame refs follow them", func() {
				So(first.SampleID, ShouldNotBeEmpty)
				So(second.SampleID, ShouldNotBeEmpty)
				So(first.SampleID, ShouldNotEqual, second.SampleID)
				So(first.FrameRef, ShouldEqual, "sim/frames/"+first.SampleID)
			})
		})
	})
}

func TestSimulatorScript(t *testing.T) {
	Convey("Given a simulator with an anomaly script", t, func() {
		sim := signal.NewSimulator(signal.WithScript(
			signal.Step{Count: 2, Faces: 0},
			signal.Step{Count: 1, Faces: 1, Gaze: true},
			signal.Step{Count: 1, Faces: 1, Objects: []model.DetectedObject{
				{Class: "cell phone", Score: 0.9},
			}},
		))

		Convey("When the script plays out", func() {
			var samples []model.DetectionSample
			for i := 0; i < 6; i++ {
				sample, err := sim.Sample(context.Background())
				So(err, ShouldBeNil)
				samples = append(samples, sample)
			}

			Convey("Then steps replay in order before clean samples resume", func() {
				So(samples[0].FaceCount, ShouldEqual, 0)
				So(samples[1].FaceCount, ShouldEqual, 0)
				So(samples[2].GazeAway, ShouldBeTrue)
				So(samples[3].Objects, ShouldHaveLength, 1)
				So(samples[3].Objects[0].Class, ShouldEqual, "cell phone")
				So(samples[4].FaceCount, ShouldEqual, 1)
				So(samples[4].Objects, ShouldBeEmpty)
				So(samples[5].FaceCount, ShouldEqual, 1)
			})
		})

		Convey("When a returned sample's objects are mutated", func() {
			sim := signal.NewSimulator(signal.WithScript(
				signal.Step{Count: 2, Faces: 1, Objects: []model.DetectedObject{
					{Class: "book", Score: 0.8},
				}},
			))

			first, _ := sim.Sample(context.Background())
			first.Objects[0].Class = "mangled"

			Convey("Then the script itself is untouched", func() {
				second, _ := sim.Sample(context.Background())
				So(second.Objects[0].Class, ShouldEqual, "book")
			})
		})

		Convey("When steps carry non-positive counts", func() {
			sim := signal.NewSimulator(signal.WithScript(
				signal.Step{Count: 0, Faces: 5},
				signal.Step{Count: -3, Faces: 7},
			))

			Convey("Then they are dropped from the script", func() {
				sample, err := sim.Sample(context.Background())
				So(err, ShouldBeNil)
				So(sample.FaceCount, ShouldEqual, 1)
			})
		})
	})
}

func TestSimulatorClean(t *testing.T) {
	Convey("Given the Clean helper", t, func() {
		step := signal.Clean(4)

		Convey("Then it describes four ordinary samples", func() {
			So(step.Count, ShouldEqual, 4)
			So(step.Faces, ShouldEqual, 1)
			So(step.Gaze, ShouldBeFalse)
			So(step.Objects, ShouldBeEmpty)
		})
	})
}

func TestSimulatorUnavailable(t *testing.T) {
	Convey("Given a simulator standing in for a failed model", t, func() {
		sim := signal.NewSimulator(signal.WithUnavailable())

		Convey("When a sample is requested", func() {
			_, err := sim.Sample(context.Background())

			Convey("Then it reports the provider as unavailable", func() {
				So(errors.Is(err, signal.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestSimulatorCancellation(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When sampling without latency", func() {
			sim := signal.NewSimulator()
			_, err := sim.Sample(ctx)

			Convey("Then the cancellation surfaces", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})

		Convey("When sampling with simulated latency", func() {
			sim := signal.NewSimulator(signal.WithLatencyRange(time.Millisecond, 5*time.Millisecond))
			_, err := sim.Sample(ctx)

			Convey("Then the cancellation still surfaces", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})

	Convey("Given simulated latency and a live context", t, func() {
		sim := signal.NewSimulator(signal.WithLatencyRange(time.Millisecond, 5*time.Millisecond))

		Convey("When a sample is drawn", func() {
			start := time.Now()
			_, err := sim.Sample(context.Background())
			elapsed := time.Since(start)

			Convey("Then the draw takes at least the minimum latency", func() {
				So(err, ShouldBeNil)
				So(elapsed, ShouldBeGreaterThanOrEqualTo, time.Millisecond)
			})
		})
	})
}

func TestSimulatorDeterminism(t *testing.T) {
	Convey("Given two simulators with the same seed", t, func() {
		a := signal.NewSimulator(signal.WithSeed(7))
		b := signal.NewSimulator(signal.WithSeed(7))

		Convey("When both draw a run of samples", func() {
			Convey("Then confidences line up draw for draw", func() {
				for i := 0; i < 5; i++ {
					sa, errA := a.Sample(context.Background())
					sb, errB := b.Sample(context.Background())
					So(errA, ShouldBeNil)
					So(errB, ShouldBeNil)
					So(sa.FaceConfidences[0], ShouldEqual, sb.FaceConfidences[0])
				}
			})
		})
	})
}
