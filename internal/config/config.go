// Package config defines the launch configuration of the process.
//
// Launch configuration is distinct from the user Settings aggregate: it
// describes where the Settings file lives, which overlay to merge into it,
// and how the process itself behaves (logging, metrics, ranking limits).
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading accepts context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// SettingsPath overrides the default Settings.json location. May be quote-wrapped.
	SettingsPath string `koanf:"settings_path"`

	// SettingsOverwriteJSON is a partial Settings document merged after every reload.
	SettingsOverwriteJSON string `koanf:"settings_overwrite_json"`

	// StatisticsPath overrides the statistics file; defaults to Statistics.json next to the settings file.
	StatisticsPath string `koanf:"statistics_path"`

	// MaxRankingEntries caps how many performances are kept per song.
	MaxRankingEntries int `koanf:"max_ranking_entries"`

	// MetricsAddr enables the /healthz and /metrics listener when non-empty, e.g. "127.0.0.1:9464".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		MaxRankingEntries: 10,
	}
}
