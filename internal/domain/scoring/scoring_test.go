package scoring_test

import (
	"testing"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	scoring "github.com/BakulBd/GreenGuardian-sub000/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEngineScore(t *testing.T) {
	Convey("Given an engine with default weights and decay", t, func() {
		engine := scoring.NewEngine()

		Convey("When no violations occurred", func() {
			Convey("Then the score is a perfect 100", func() {
				So(engine.Score(nil), ShouldEqual, 100)
				So(engine.Score(map[model.Kind]int{}), ShouldEqual, 100)
			})
		})

		Convey("When a single mobile phone was detected", func() {
			counts := map[model.Kind]int{model.KindMobilePhone: 1}

			Convey("Then the full base penalty applies", func() {
				So(engine.Score(counts), ShouldEqual, 85) // 100 - 15
			})
		})

		Convey("When the candidate switched tabs twice", func() {
			counts := map[model.Kind]int{model.KindTabSwitch: 2}

			Convey("Then the second occurrence costs less than the first", func() {
				So(engine.Penalty(model.KindTabSwitch, 2), ShouldAlmostEqual, 5.55) // 3*1.0 + 3*0.85
				So(engine.Score(counts), ShouldEqual, 94)                           // round(100 - 5.55)
			})
		})

		Convey("When several kinds accumulate", func() {
			counts := map[model.Kind]int{
				model.KindTabSwitch:  2,
				model.KindWindowBlur: 1,
			}

			Convey("Then penalties add up across kinds", func() {
				// 5.55 + 2.0 = 7.55, round(100-7.55) = 92
				So(engine.Score(counts), ShouldEqual, 92)
			})
		})

		Convey("When violations pile far past the budget", func() {
			counts := map[model.Kind]int{
				model.KindMobilePhone:  20,
				model.KindSecondPerson: 20,
			}

			Convey("Then the score bottoms out at zero", func() {
				So(engine.Score(counts), ShouldEqual, 0)
			})
		})

		Convey("When counts contain an unknown kind", func() {
			counts := map[model.Kind]int{
				model.KindUnknown:     7,
				model.Kind("weirdos"): 3,
			}

			Convey("Then unknown kinds contribute nothing", func() {
				So(engine.Score(counts), ShouldEqual, 100)
			})
		})

		Convey("When a kind has a zero base penalty", func() {
			counts := map[model.Kind]int{model.KindRightClick: 50}

			Convey("Then it never moves the score", func() {
				So(engine.Score(counts), ShouldEqual, 100)
			})
		})

		Convey("When a count is non-positive", func() {
			Convey("Then it contributes nothing", func() {
				So(engine.Penalty(model.KindMobilePhone, 0), ShouldEqual, 0)
				So(engine.Penalty(model.KindMobilePhone, -3), ShouldEqual, 0)
			})
		})
	})
}

func TestEngineDiminishingReturns(t *testing.T) {
	Convey("Given an engine with default decay", t, func() {
		engine := scoring.NewEngine()

		Convey("When occurrences of one kind accumulate", func() {
			Convey("Then each marginal penalty is no larger than the previous", func() {
				prev := engine.Penalty(model.KindTabSwitch, 1)
				prevMarginal := prev
				for count := 2; count <= 12; count++ {
					total := engine.Penalty(model.KindTabSwitch, count)
					marginal := total - prev
					So(marginal, ShouldBeLessThanOrEqualTo, prevMarginal+1e-9)
					prev = total
					prevMarginal = marginal
				}
			})

			Convey("And the marginal cost never drops below half the base", func() {
				base := engine.Penalty(model.KindMobilePhone, 1)
				for count := 2; count <= 20; count++ {
					marginal := engine.Penalty(model.KindMobilePhone, count) -
						engine.Penalty(model.KindMobilePhone, count-1)
					So(marginal, ShouldBeGreaterThanOrEqualTo, base*0.5-1e-9)
				}
			})

			Convey("And the floor takes over on the fifth occurrence", func() {
				// Weights run 1.0, 0.85, 0.70, 0.55, then clamp at 0.5.
				marginal := engine.Penalty(model.KindTabSwitch, 5) -
					engine.Penalty(model.KindTabSwitch, 4)
				So(marginal, ShouldAlmostEqual, 3*0.5)

				marginal = engine.Penalty(model.KindTabSwitch, 9) -
					engine.Penalty(model.KindTabSwitch, 8)
				So(marginal, ShouldAlmostEqual, 3*0.5)
			})
		})

		Convey("When scores are compared across growing counts", func() {
			Convey("Then the score is monotonically non-increasing", func() {
				prev := 101
				for count := 0; count <= 30; count++ {
					score := engine.Score(map[model.Kind]int{model.KindNoFace: count})
					So(score, ShouldBeLessThanOrEqualTo, prev)
					So(score, ShouldBeGreaterThanOrEqualTo, 0)
					So(score, ShouldBeLessThanOrEqualTo, 100)
					prev = score
				}
			})
		})
	})
}

func TestEngineOptions(t *testing.T) {
	Convey("Given an engine with custom options", t, func() {
		Convey("When base weights are overridden", func() {
			engine := scoring.NewEngine(
				scoring.WithBaseWeights(map[model.Kind]float64{
					model.KindTabSwitch:  10,
					model.KindRightClick: 1,
				}),
			)

			Convey("Then the overrides take effect", func() {
				So(engine.Score(map[model.Kind]int{model.KindTabSwitch: 1}), ShouldEqual, 90)
				So(engine.Score(map[model.Kind]int{model.KindRightClick: 1}), ShouldEqual, 99)
			})

			Convey("And untouched kinds keep their defaults", func() {
				So(engine.Score(map[model.Kind]int{model.KindMobilePhone: 1}), ShouldEqual, 85)
			})
		})

		Convey("When an override disables a kind", func() {
			engine := scoring.NewEngine(
				scoring.WithBaseWeights(map[model.Kind]float64{
					model.KindLookingAway: 0,
				}),
			)

			Convey("Then that kind stops costing anything", func() {
				So(engine.Score(map[model.Kind]int{model.KindLookingAway: 10}), ShouldEqual, 100)
			})
		})

		Convey("When overrides carry invalid entries", func() {
			engine := scoring.NewEngine(
				scoring.WithBaseWeights(map[model.Kind]float64{
					model.KindTabSwitch:   -5,
					model.Kind("made-up"): 40,
				}),
			)

			Convey("Then they are ignored", func() {
				So(engine.Score(map[model.Kind]int{model.KindTabSwitch: 1}), ShouldEqual, 97)
				So(engine.Score(map[model.Kind]int{model.Kind("made-up"): 1}), ShouldEqual, 100)
			})
		})

		Convey("When decay parameters are customized", func() {
			engine := scoring.NewEngine(scoring.WithDecay(0, 1))

			Convey("Then repetitions cost the full base every time", func() {
				So(engine.Penalty(model.KindTabSwitch, 4), ShouldAlmostEqual, 12.0)
				So(engine.Score(map[model.Kind]int{model.KindTabSwitch: 4}), ShouldEqual, 88)
			})
		})

		Convey("When decay parameters are out of range", func() {
			engine := scoring.NewEngine(scoring.WithDecay(1.5, -0.2))

			Convey("Then the defaults still apply", func() {
				So(engine.Penalty(model.KindTabSwitch, 2), ShouldAlmostEqual, 5.55)
			})
		})
	})
}

func TestEngineOrderIndependence(t *testing.T) {
	Convey("Given one set of counts assembled in different orders", t, func() {
		engine := scoring.NewEngine()

		a := map[model.Kind]int{}
		a[model.KindTabSwitch] = 2
		a[model.KindMobilePhone] = 1
		a[model.KindWindowBlur] = 3

		b := map[model.Kind]int{}
		b[model.KindWindowBlur] = 3
		b[model.KindMobilePhone] = 1
		b[model.KindTabSwitch] = 2

		Convey("Then the fold lands on the same score", func() {
			So(engine.Score(a), ShouldEqual, engine.Score(b))
		})

		Convey("And the total equals the sum of per-kind penalties", func() {
			total := engine.Penalty(model.KindTabSwitch, 2) +
				engine.Penalty(model.KindMobilePhone, 1) +
				engine.Penalty(model.KindWindowBlur, 3)
			So(float64(engine.Score(a)), ShouldAlmostEqual, 100-total, 0.5)
		})
	})
}
