// Package metrics provides Prometheus metrics for the singalong settings and statistics core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the application.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Settings lifecycle
	settingsLoads        *prometheus.CounterVec
	settingsLoadErrors   prometheus.Counter
	settingsSaves        prometheus.Counter
	settingsSaveErrors   prometheus.Counter
	overlayApplied       prometheus.Counter
	overlayRejected      prometheus.Counter
	settingsIOLatency    *prometheus.HistogramVec
	settingsLastSaveUnix prometheus.Gauge

	// Statistics
	statisticsRecords  prometheus.Counter
	statisticsPruned   prometheus.Counter
	statisticsSongs    prometheus.Gauge
	rankingSize        prometheus.Histogram
	statisticsIOErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "singalong",
		subsystem:        "core",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)

	m.settingsLoads = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "settings_loads_total",
			Help:      "Settings loads by source (file or default)",
		},
		[]string{"source"},
	)

	m.settingsLoadErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settings_load_errors_total",
		Help:      "Settings files that could not be read or decoded",
	})

	m.settingsSaves = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settings_saves_total",
		Help:      "Successful settings file writes",
	})

	m.settingsSaveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settings_save_errors_total",
		Help:      "Failed settings file writes",
	})

	m.overlayApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settings_overlay_applied_total",
		Help:      "Launch-time settings overlays merged into the aggregate",
	})

	m.overlayRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settings_overlay_rejected_total",
		Help:      "Launch-time settings overlays discarded because they failed to parse or apply",
	})

	m.settingsIOLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "settings_io_latency_milliseconds",
			Help:      "Settings load and save latency in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	m.settingsLastSaveUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "settings_last_save_unix",
		Help:      "Unix time of the last successful settings save",
	})

	m.statisticsRecords = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "statistics_records_total",
		Help:      "Song performances recorded",
	})

	m.statisticsPruned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "statistics_pruned_total",
		Help:      "Ranking entries removed because a song's ranking was full",
	})

	m.statisticsSongs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "statistics_songs",
		Help:      "Songs with at least one recorded performance",
	})

	m.rankingSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_size",
		Help:      "Number of entries in a song ranking when it is saved",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
	})

	m.statisticsIOErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "statistics_io_errors_total",
		Help:      "Statistics file reads or writes that failed",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Errors grouped by component and error type",
		},
		[]string{"component", "error_type"},
	)
}

// Settings metrics.

// RecordSettingsLoad counts a completed load. source is "file" or "default".
func RecordSettingsLoad(source string, latencyMs float64) {
	globalManager.settingsLoads.WithLabelValues(source).Inc()
	globalManager.settingsIOLatency.WithLabelValues("load").Observe(latencyMs)
}

// RecordSettingsLoadError increments the settings load error counter.
func RecordSettingsLoadError() {
	globalManager.settingsLoadErrors.Inc()
}

// RecordSettingsSave records a successful save and its latency.
func RecordSettingsSave(latencyMs float64, unix float64) {
	globalManager.settingsSaves.Inc()
	globalManager.settingsIOLatency.WithLabelValues("save").Observe(latencyMs)
	globalManager.settingsLastSaveUnix.Set(unix)
}

// RecordSettingsSaveError increments the settings save error counter.
func RecordSettingsSaveError() {
	globalManager.settingsSaveErrors.Inc()
}

// RecordOverlayApplied increments the applied overlay counter.
func RecordOverlayApplied() {
	globalManager.overlayApplied.Inc()
}

// RecordOverlayRejected increments the rejected overlay counter.
func RecordOverlayRejected() {
	globalManager.overlayRejected.Inc()
}

// Statistics metrics.

// RecordStatisticsRecord increments the recorded performances counter.
func RecordStatisticsRecord() {
	globalManager.statisticsRecords.Inc()
}

// RecordStatisticsPruned adds n pruned ranking entries.
func RecordStatisticsPruned(n int) {
	if n > 0 {
		globalManager.statisticsPruned.Add(float64(n))
	}
}

// UpdateStatisticsSongs sets the number of songs with statistics.
func UpdateStatisticsSongs(count int) {
	globalManager.statisticsSongs.Set(float64(count))
}

// RecordRankingSize observes the size of a ranking at save time.
func RecordRankingSize(size int) {
	globalManager.rankingSize.Observe(float64(size))
}

// RecordStatisticsIOError increments the statistics I/O error counter.
func RecordStatisticsIOError() {
	globalManager.statisticsIOErrors.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
