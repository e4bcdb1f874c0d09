package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/singalong/internal/adapters/http/api"
	"github.com/okian/singalong/internal/adapters/repository"
	app "github.com/okian/singalong/internal/app"
	"github.com/okian/singalong/internal/config"
	"github.com/okian/singalong/internal/domain/ranking"
	"github.com/okian/singalong/internal/settings"
	"github.com/okian/singalong/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Flag names. The two settings flags keep the spelling of the game's launch arguments.
const (
	flagSettingsPath      = "settingsPath"
	flagSettingsOverwrite = "settingsOverwriteJson"
	flagConfig            = "config"
	flagLogLevel          = "log-level"
	flagLogJSON           = "log-json"
	flagMetricsAddr       = "metrics-addr"
	flagStatisticsPath    = "statistics-path"
	flagMaxRanking        = "max-ranking-entries"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("singalong: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

// runner holds what the Before hook builds for the commands.
type runner struct {
	cfg *config.Config
	svc *app.Service
	log logger.Logger
}

func newApp(stdout, stderr io.Writer) *cli.App {
	rt := &runner{}

	return &cli.App{
		Name:      "singalong",
		Usage:     "karaoke settings and score rankings",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagSettingsPath, Usage: "settings file `PATH` (quotes are stripped)"},
			&cli.StringFlag{Name: flagSettingsOverwrite, Usage: "partial settings `JSON` merged after every load"},
			&cli.StringFlag{Name: flagConfig, Usage: "launch configuration YAML `FILE`", EnvVars: []string{config.EnvConfigFile}},
			&cli.StringFlag{Name: flagLogLevel, Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: flagLogJSON, Usage: "write JSON log lines"},
			&cli.StringFlag{Name: flagMetricsAddr, Usage: "serve /healthz, /stats and /metrics on `ADDR`"},
			&cli.StringFlag{Name: flagStatisticsPath, Usage: "statistics file `PATH` (default: next to the settings file)"},
			&cli.IntFlag{Name: flagMaxRanking, Usage: "performances kept per song"},
		},
		Before: rt.setup,
		After:  rt.teardown,
		Action: rt.serve,
		Commands: []*cli.Command{
			{
				Name:  "settings",
				Usage: "inspect the settings file",
				Subcommands: []*cli.Command{
					{Name: "show", Usage: "print the effective settings", Action: rt.showSettings},
					{Name: "path", Usage: "print the settings file path", Action: rt.showSettingsPath},
				},
			},
			{
				Name:  "stats",
				Usage: "record and list song performances",
				Subcommands: []*cli.Command{
					{
						Name:  "record",
						Usage: "record a finished song",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "song", Required: true},
							&cli.StringFlag{Name: "player", Required: true},
							&cli.StringFlag{Name: "difficulty", Value: ranking.DifficultyMedium.String()},
							&cli.IntFlag{Name: "score", Required: true},
							&cli.DurationFlag{Name: "duration"},
						},
						Action: rt.recordPerformance,
					},
					{
						Name:  "top",
						Usage: "list the best performances of a song",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "song", Required: true},
							&cli.IntFlag{Name: "n", Value: app.DefaultMaxRankingEntries},
						},
						Action: rt.topScores,
					},
					{Name: "songs", Usage: "list songs with recorded performances", Action: rt.listSongs},
				},
			},
			{Name: "mute", Usage: "toggle mute and save", Action: rt.toggleMute},
			{Name: "fullscreen", Usage: "toggle full-screen mode and save", Action: rt.toggleFullscreen},
		},
	}
}

// setup loads the configuration, applies flags over it and starts the service.
func (rt *runner) setup(c *cli.Context) error {
	ctx := c.Context

	cfg, err := config.Load(ctx, config.WithFile(c.String(flagConfig)))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	rt.cfg = cfg

	if err := logger.Init(logger.WithOutput(c.App.ErrWriter), logger.WithJSON(cfg.LogJSON)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	rt.log = logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		rt.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	rt.svc = newService(cfg, rt.log)
	if err := rt.svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	return nil
}

// teardown saves the settings. It runs after every command, including failed ones.
func (rt *runner) teardown(c *cli.Context) error {
	if rt.svc == nil {
		return nil
	}
	err := rt.svc.Stop(c.Context)
	if syncErr := logger.Sync(); syncErr != nil && err == nil {
		err = syncErr
	}
	return err
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flagSettingsPath) {
		cfg.SettingsPath = c.String(flagSettingsPath)
	}
	if c.IsSet(flagSettingsOverwrite) {
		cfg.SettingsOverwriteJSON = c.String(flagSettingsOverwrite)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
	if c.IsSet(flagLogJSON) {
		cfg.LogJSON = c.Bool(flagLogJSON)
	}
	if c.IsSet(flagMetricsAddr) {
		cfg.MetricsAddr = c.String(flagMetricsAddr)
	}
	if c.IsSet(flagStatisticsPath) {
		cfg.StatisticsPath = c.String(flagStatisticsPath)
	}
	if c.IsSet(flagMaxRanking) {
		cfg.MaxRankingEntries = c.Int(flagMaxRanking)
	}
}

func newService(cfg *config.Config, log logger.Logger) *app.Service {
	store := settings.New(
		settings.WithPathResolver(settings.NewPathResolver(
			settings.WithOverride(func() string { return cfg.SettingsPath }),
		)),
		settings.WithOverlay(func() string { return cfg.SettingsOverwriteJSON }),
		settings.WithLogger(log.Named("settings")),
	)

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithSettingsStore(store),
		app.WithMaxRankingEntries(cfg.MaxRankingEntries),
	}
	if path := settings.Unquote(cfg.StatisticsPath); path != "" {
		opts = append(opts, app.WithStatisticsStore(
			repository.NewFileStore(path, repository.WithLogger(log.Named("statistics"))),
		))
	}
	return app.New(opts...)
}

// serve keeps the settings loaded until the process is signalled, exposing
// diagnostics when an address is configured.
func (rt *runner) serve(c *cli.Context) error {
	ctx := c.Context

	if rt.cfg.MetricsAddr == "" {
		rt.log.Info(ctx, "settings loaded; waiting for shutdown", logger.String("path", rt.svc.SettingsPath()))
		<-ctx.Done()
		return nil
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(rt.svc).Register(mux)

	srv := &http.Server{
		Addr:              rt.cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info(ctx, "starting HTTP server", logger.String("addr", rt.cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		close(errCh)
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	rt.log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		rt.log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	rt.log.Info(ctx, "server stopped")
	return nil
}

func (rt *runner) showSettings(c *cli.Context) error {
	cur, err := rt.svc.Settings(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, cur)
}

func (rt *runner) showSettingsPath(c *cli.Context) error {
	_, err := fmt.Fprintln(c.App.Writer, rt.svc.SettingsPath())
	return err
}

func (rt *runner) recordPerformance(c *cli.Context) error {
	difficulty, err := ranking.ParseDifficulty(c.String("difficulty"))
	if err != nil {
		return err
	}
	rec, rank, err := rt.svc.RecordPerformance(c.Context, app.Performance{
		SongID:     c.String("song"),
		PlayerName: c.String("player"),
		Difficulty: difficulty,
		Score:      c.Int("score"),
		Duration:   c.Duration("duration"),
	})
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, struct {
		Rank   int                   `json:"rank"`
		Record ranking.SongStatistic `json:"record"`
	}{Rank: rank, Record: rec})
}

func (rt *runner) topScores(c *cli.Context) error {
	top, err := rt.svc.TopScores(c.Context, c.String("song"), c.Int("n"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, top)
}

func (rt *runner) listSongs(c *cli.Context) error {
	songs, err := rt.svc.Songs(c.Context)
	if err != nil {
		return err
	}
	total, err := rt.svc.TotalPlayTime(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, struct {
		Songs    []string `json:"songs"`
		PlayTime string   `json:"playTime"`
	}{Songs: songs, PlayTime: total.String()})
}

func (rt *runner) toggleMute(c *cli.Context) error {
	volume, err := rt.svc.ToggleMute(c.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "volume %d%%\n", volume)
	return err
}

func (rt *runner) toggleFullscreen(c *cli.Context) error {
	mode, err := rt.svc.ToggleFullscreen(c.Context)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, mode)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
