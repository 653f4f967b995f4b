package violation_test

import (
	"testing"

	model "github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	violation "github.com/BakulBd/GreenGuardian-sub000/internal/domain/violation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClassifier(t *testing.T) {
	Convey("Given a classifier with the default rules", t, func() {
		c := violation.NewClassifier()

		Convey("When classifying exact trigger tags", func() {
			cases := map[string]model.Kind{
				"tab-switch":      model.KindTabSwitch,
				"fullscreen-exit": model.KindFullscreenExit,
				"copy":            model.KindCopyAttempt,
				"paste":           model.KindPasteAttempt,
				"contextmenu":     model.KindRightClick,
				"keydown":         model.KindSuspiciousKeyboard,
				"blur":            model.KindWindowBlur,
				"multi-window":    model.KindMultipleWindows,
				"phone":           model.KindMobilePhone,
				"book":            model.KindBookMaterial,
				"second-device":   model.KindAdditionalDevice,
				"another-person":  model.KindSecondPerson,
			}

			Convey("Then each should resolve to its canonical kind", func() {
				for trigger, want := range cases {
					So(c.Classify(trigger, ""), ShouldEqual, want)
				}
			})
		})

		Convey("When classifying browser event spellings", func() {
			Convey("Then visibilitychange should be a tab switch", func() {
				So(c.Classify("visibilitychange", ""), ShouldEqual, model.KindTabSwitch)
			})

			Convey("And underscores should normalize to hyphens", func() {
				So(c.Classify("TAB_SWITCH", ""), ShouldEqual, model.KindTabSwitch)
				So(c.Classify("Fullscreen_Exit", ""), ShouldEqual, model.KindFullscreenExit)
			})
		})

		Convey("When the trigger tag is ambiguous", func() {
			Convey("Then the earliest rule wins", func() {
				// "copy" sits before "right-click" in the canonical order.
				So(c.Classify("copy", "via context menu"), ShouldEqual, model.KindCopyAttempt)
			})

			Convey("And an exact alias beats an earlier substring hint", func() {
				// "tablet" contains "tab" but is a device, not a tab switch.
				So(c.Classify("tablet", ""), ShouldEqual, model.KindAdditionalDevice)
			})
		})

		Convey("When the trigger tag is generic but the detail is telling", func() {
			Convey("Then the detail should classify", func() {
				So(c.Classify("anticheat", "candidate switched tab"), ShouldEqual, model.KindTabSwitch)
				So(c.Classify("violation", "paste into answer field"), ShouldEqual, model.KindPasteAttempt)
			})
		})

		Convey("When nothing matches", func() {
			Convey("Then the result should be unknown", func() {
				So(c.Classify("cosmic-ray", "bit flip"), ShouldEqual, model.KindUnknown)
				So(c.Classify("", ""), ShouldEqual, model.KindUnknown)
			})
		})
	})

	Convey("Given a classifier with extra rules", t, func() {
		c := violation.NewClassifier(
			violation.WithExtraRules(
				violation.NewRule(model.KindSuspiciousKeyboard, []string{"macro-pad"}, nil),
			),
		)

		Convey("When classifying the site-specific tag", func() {
			Convey("Then the extra rule should resolve it", func() {
				So(c.Classify("macro-pad", ""), ShouldEqual, model.KindSuspiciousKeyboard)
			})
		})

		Convey("When classifying a canonical tag", func() {
			Convey("Then the default rules should still apply first", func() {
				So(c.Classify("copy", ""), ShouldEqual, model.KindCopyAttempt)
			})
		})
	})
}

func TestKindMetadata(t *testing.T) {
	Convey("Given the kind metadata tables", t, func() {
		Convey("When looking up severities", func() {
			Convey("Then camera-derived critical kinds should grade critical", func() {
				So(violation.SeverityOf(model.KindMobilePhone), ShouldEqual, model.SeverityCritical)
				So(violation.SeverityOf(model.KindSecondPerson), ShouldEqual, model.SeverityCritical)
				So(violation.SeverityOf(model.KindMultipleFaces), ShouldEqual, model.SeverityCritical)
			})

			Convey("And nuisance kinds should grade low", func() {
				So(violation.SeverityOf(model.KindRightClick), ShouldEqual, model.SeverityLow)
				So(violation.SeverityOf(model.KindWindowBlur), ShouldEqual, model.SeverityLow)
			})

			Convey("And unknown kinds should grade low", func() {
				So(violation.SeverityOf(model.KindUnknown), ShouldEqual, model.SeverityLow)
			})
		})

		Convey("When looking up base penalties", func() {
			Convey("Then the documented defaults should hold", func() {
				So(violation.BasePenalty(model.KindMobilePhone), ShouldEqual, 15)
				So(violation.BasePenalty(model.KindTabSwitch), ShouldEqual, 3)
				So(violation.BasePenalty(model.KindRightClick), ShouldEqual, 0)
			})

			Convey("And unknown kinds should cost nothing", func() {
				So(violation.BasePenalty(model.KindUnknown), ShouldEqual, 0)
			})

			Convey("And every canonical kind should have an entry", func() {
				table := violation.DefaultPenalties()
				So(len(table), ShouldEqual, len(model.Kinds()))
				for _, k := range model.Kinds() {
					_, ok := table[k]
					So(ok, ShouldBeTrue)
				}
			})
		})

		Convey("When looking up messages", func() {
			Convey("Then canonical kinds should have specific messages", func() {
				So(violation.MessageOf(model.KindMobilePhone), ShouldEqual, "Mobile phone detected")
				So(violation.MessageOf(model.KindNoFace), ShouldEqual, "Face not visible in camera")
			})

			Convey("And unknown kinds should fall back to a generic message", func() {
				So(violation.MessageOf(model.KindUnknown), ShouldEqual, "Unrecognized activity")
			})
		})

		Convey("When mutating a penalties copy", func() {
			table := violation.DefaultPenalties()
			table[model.KindTabSwitch] = 99

			Convey("Then the built-in table should be unaffected", func() {
				So(violation.BasePenalty(model.KindTabSwitch), ShouldEqual, 3)
			})
		})
	})
}
