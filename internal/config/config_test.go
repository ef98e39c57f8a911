package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have the session cadences", func() {
			convey.So(cfg.PollInterval(), convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.ListPollInterval(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.AutoDrawInterval(), convey.ShouldEqual, 7*time.Second)
			convey.So(cfg.HostStaleAfter(), convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.PollFailureThreshold, convey.ShouldEqual, 5)
			convey.So(cfg.PollMaxBackoff(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When an interval is zeroed", func() {
			cfg.AutoDrawIntervalMS = 0
			err := cfg.Validate()

			convey.Convey("Then validation names the key", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "auto_draw_interval_ms")
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
