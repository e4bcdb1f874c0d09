package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the custom namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.settingsSaves.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_settings_saves_total")
			})
		})

		Convey("When creating two managers on separate registries", func() {
			So(func() {
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
				NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording settings activity", func() {
			before := testutil.ToFloat64(globalManager.settingsSaves)
			RecordSettingsSave(3, 1_700_000_000)
			RecordSettingsLoad("file", 2)
			RecordSettingsLoad("default", 1)
			RecordOverlayApplied()
			RecordOverlayRejected()
			RecordSettingsSaveError()
			RecordSettingsLoadError()

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.settingsSaves), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.settingsLastSaveUnix), ShouldEqual, 1_700_000_000)
				So(testutil.ToFloat64(globalManager.settingsLoads.WithLabelValues("default")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording statistics activity", func() {
			before := testutil.ToFloat64(globalManager.statisticsPruned)
			RecordStatisticsRecord()
			RecordStatisticsPruned(2)
			RecordStatisticsPruned(0)
			UpdateStatisticsSongs(4)
			RecordRankingSize(10)
			RecordStatisticsIOError()

			Convey("Then pruned entries accumulate and the songs gauge is set", func() {
				So(testutil.ToFloat64(globalManager.statisticsPruned), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.statisticsSongs), ShouldEqual, 4)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("healthz", "GET", "200")
				RecordHTTPRequestDuration("healthz", "GET", "200", 1.5)
				RecordErrorByComponent("settings", "write")
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
