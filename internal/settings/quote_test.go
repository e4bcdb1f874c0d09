package settings_test

import (
	"testing"

	"github.com/okian/singalong/internal/settings"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUnquote(t *testing.T) {
	Convey("Given raw launch argument values", t, func() {
		cases := []struct {
			in   string
			want string
		}{
			{`"/data/Settings.json"`, "/data/Settings.json"},
			{`'/data/Settings.json'`, "/data/Settings.json"},
			{`  "/data/Settings.json"  `, "/data/Settings.json"},
			{`"'{"a":1}'"`, `'{"a":1}'`},
			{`"/data/Settings.json'`, `"/data/Settings.json'`},
			{`/data/Settings.json`, "/data/Settings.json"},
			{`""`, ""},
			{`"`, `"`},
			{``, ``},
		}

		for _, c := range cases {
			Convey("Unquote("+c.in+")", func() {
				So(settings.Unquote(c.in), ShouldEqual, c.want)
			})
		}
	})
}
