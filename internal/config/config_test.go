package config_test

import (
	"testing"

	"github.com/okian/singalong/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.MaxRankingEntries, convey.ShouldEqual, 10)
			convey.So(cfg.SettingsPath, convey.ShouldBeEmpty)
			convey.So(cfg.SettingsOverwriteJSON, convey.ShouldBeEmpty)
			convey.So(cfg.MetricsAddr, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
