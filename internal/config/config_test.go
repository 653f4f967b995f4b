package config_test

import (
	"runtime"
	"testing"

	"github.com/BakulBd/GreenGuardian-sub000/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.CycleSeconds, convey.ShouldEqual, 7)
			convey.So(cfg.DebounceThreshold, convey.ShouldEqual, 3)
			convey.So(cfg.NoFaceGraceCycles, convey.ShouldEqual, 3)
			convey.So(cfg.DefaultCooldownSeconds, convey.ShouldEqual, 30)
			convey.So(cfg.DecayStep, convey.ShouldEqual, 0.15)
			convey.So(cfg.DecayFloor, convey.ShouldEqual, 0.5)
			convey.So(cfg.ReviewThreshold, convey.ShouldEqual, 50)
			convey.So(cfg.MaxWarnings, convey.ShouldEqual, 5)
			convey.So(cfg.SubmitRetries, convey.ShouldEqual, 3)
			convey.So(cfg.RiskLowMin, convey.ShouldEqual, 85)
			convey.So(cfg.RiskMediumMin, convey.ShouldEqual, 65)
			convey.So(cfg.RiskHighMin, convey.ShouldEqual, 40)
			convey.So(cfg.AlertIntervalSeconds, convey.ShouldEqual, 10)
			convey.So(cfg.EventWriterCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.StoreBackendMemory)
		})

		convey.Convey("Then the defaults should pass validation", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
