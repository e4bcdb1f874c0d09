package settings_test

import (
	"path/filepath"
	"testing"

	"github.com/okian/singalong/internal/settings"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPathResolver(t *testing.T) {
	Convey("Given a path resolver with a data directory", t, func() {
		dir := t.TempDir()

		Convey("When no override is present", func() {
			r := settings.NewPathResolver(settings.WithDataDir(dir))

			Convey("Then the default file in the data directory is used", func() {
				So(r.ResolvePath(), ShouldEqual, filepath.Join(dir, settings.DefaultFileName))
			})
		})

		Convey("When an override is present", func() {
			override := `"` + filepath.Join(dir, "custom", "my.json") + `"`
			r := settings.NewPathResolver(
				settings.WithDataDir(dir),
				settings.WithOverride(func() string { return override }),
			)

			Convey("Then the unquoted override wins", func() {
				So(r.ResolvePath(), ShouldEqual, filepath.Join(dir, "custom", "my.json"))
			})

			Convey("Then the path stays fixed after the override is withdrawn", func() {
				first := r.ResolvePath()
				override = ""
				So(r.ResolvePath(), ShouldEqual, first)
			})
		})

		Convey("When the override is only a pair of quotes", func() {
			r := settings.NewPathResolver(
				settings.WithDataDir(dir),
				settings.WithOverride(func() string { return `''` }),
			)

			Convey("Then the default is used", func() {
				So(r.ResolvePath(), ShouldEqual, filepath.Join(dir, settings.DefaultFileName))
			})
		})

		Convey("When a custom file name is configured", func() {
			r := settings.NewPathResolver(settings.WithDataDir(dir), settings.WithFileName("Other.json"))

			Convey("Then it is joined to the data directory", func() {
				So(r.ResolvePath(), ShouldEqual, filepath.Join(dir, "Other.json"))
			})
		})
	})

	Convey("Given the platform persistent-data directory", t, func() {
		Convey("Then it is never empty", func() {
			So(settings.PersistentDataDir(), ShouldNotBeEmpty)
		})
	})
}
