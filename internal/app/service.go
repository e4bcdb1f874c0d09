// Package service ties the settings store and the statistics store into the
// single object the rest of the application talks to.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/singalong/internal/adapters/repository"
	"github.com/okian/singalong/internal/domain/ranking"
	"github.com/okian/singalong/internal/settings"
	"github.com/okian/singalong/pkg/logger"
	"github.com/okian/singalong/pkg/metrics"
)

// DefaultMaxRankingEntries is how many performances are kept per song.
const DefaultMaxRankingEntries = 10

// Service owns the process's settings and statistics. Calls are serialized
// by an internal mutex, so the stores underneath only ever see one caller.
type Service struct {
	mu sync.Mutex

	settings   *settings.Store
	stats      repository.Store
	maxEntries int
	now        func() time.Time

	started bool
	stopped bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSettingsStore sets the settings store. By default a store for the
// platform settings path is created.
func WithSettingsStore(store *settings.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.settings = store
		}
	}
}

// WithStatisticsStore sets the statistics store. By default Statistics.json
// next to the settings file is used.
func WithStatisticsStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.stats = store
		}
	}
}

// WithMaxRankingEntries sets how many performances are kept per song.
func WithMaxRankingEntries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock sets the time source used to stamp new performances.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxEntries: DefaultMaxRankingEntries,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.settings == nil {
		s.settings = settings.New()
	}
	if s.stats == nil {
		path := filepath.Join(filepath.Dir(s.settings.Path()), repository.DefaultFileName)
		s.stats = repository.NewFileStore(path)
	}
	return s
}

// Start loads the settings. It is safe to call more than once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting service...", logger.String("settings", s.settings.Path()))
	if err := s.settings.EnsureLoaded(ctx); err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "service started", logger.Int("maxRankingEntries", s.maxEntries))
	return nil
}

// Stop saves the settings one last time. Later calls on the service return
// ErrStopped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.logger.Info(ctx, "stopping service...")

	err := s.settings.Close(ctx)
	s.stopped = true
	s.started = false
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info(ctx, "service stopped")
	return nil
}

// Settings returns the live settings aggregate. Changes made through the
// pointer are written by the next SaveSettings or by Stop.
func (s *Service) Settings(ctx context.Context) (*settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.settings.Current(ctx)
}

// SaveSettings writes the settings file.
func (s *Service) SaveSettings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	return s.settings.Save(ctx)
}

// ReloadSettings rereads the settings file and applies the overlay again.
func (s *Service) ReloadSettings(ctx context.Context) (*settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.settings.Reload(ctx)
}

// SettingsPath returns the resolved settings file path.
func (s *Service) SettingsPath() string {
	return s.settings.Path()
}

// Performance describes a finished song.
type Performance struct {
	SongID     string
	PlayerName string
	Difficulty ranking.Difficulty
	Score      int
	Duration   time.Duration
}

// RecordPerformance adds a finished song to its ranking, drops entries
// beyond the configured maximum from the worst end and stores the result.
// It returns the new record and its 1-based rank, or rank 0 when the record
// did not make it into the ranking.
func (s *Service) RecordPerformance(ctx context.Context, p Performance) (ranking.SongStatistic, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return ranking.SongStatistic{}, 0, err
	}
	if p.Score < 0 {
		return ranking.SongStatistic{}, 0, fmt.Errorf("%w: %d", ErrInvalidScore, p.Score)
	}
	if _, err := p.Difficulty.MarshalText(); err != nil {
		return ranking.SongStatistic{}, 0, err
	}

	set, err := s.stats.Load(ctx, p.SongID)
	if err != nil {
		return ranking.SongStatistic{}, 0, err
	}

	rec := ranking.NewSongStatistic(p.SongID, p.PlayerName, p.Difficulty, p.Score, s.now())
	set.Add(rec)
	pruned := set.Truncate(s.maxEntries)

	if err := s.stats.Save(ctx, p.SongID, set); err != nil {
		return ranking.SongStatistic{}, 0, err
	}
	if err := s.stats.AddPlayTime(ctx, p.SongID, p.Duration); err != nil {
		// The ranking is already stored; a lost play time is only logged.
		s.logger.Warn(ctx, "recording play time failed", logger.String("song", p.SongID), logger.Error(err))
	}

	metrics.RecordStatisticsRecord()
	metrics.RecordStatisticsPruned(len(pruned))

	rank, _ := set.Rank(rec)
	s.logger.Info(ctx, "performance recorded",
		logger.String("song", p.SongID),
		logger.String("player", p.PlayerName),
		logger.Int("score", p.Score),
		logger.Int("rank", rank),
	)
	return rec, rank, nil
}

// TopScores returns up to n of the best performances of a song.
func (s *Service) TopScores(ctx context.Context, songID string, n int) ([]ranking.SongStatistic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	set, err := s.stats.Load(ctx, songID)
	if err != nil {
		return nil, err
	}
	return set.Top(n), nil
}

// Songs returns the IDs of every song with recorded statistics.
func (s *Service) Songs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.stats.Songs(ctx)
}

// TotalPlayTime returns the accumulated singing time.
func (s *Service) TotalPlayTime(ctx context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.stats.TotalPlayTime(ctx)
}

// ToggleMute sets the volume to zero, or restores the volume it had before
// muting. The mute state lives in the settings, so a saved mute can be undone
// by a later process. It returns the new volume. The settings are not saved.
func (s *Service) ToggleMute(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current(ctx)
	if err != nil {
		return 0, err
	}

	audio := &cur.Audio
	if audio.Muted() {
		audio.VolumePercent = audio.VolumeBeforeMute
		audio.VolumeBeforeMute = settings.NotMuted
	} else {
		audio.VolumeBeforeMute = audio.VolumePercent
		audio.VolumePercent = 0
	}

	s.logger.Debug(ctx, "volume toggled", logger.Int("volume", audio.VolumePercent))
	return audio.VolumePercent, nil
}

// ToggleFullscreen switches between windowed and full-screen window mode and
// returns the new mode. The settings are not saved.
func (s *Service) ToggleFullscreen(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current(ctx)
	if err != nil {
		return "", err
	}

	g := &cur.Graphics
	if g.FullScreenMode == settings.FullScreenModeWindowed {
		g.FullScreenMode = settings.FullScreenModeFullScreenWindow
	} else {
		g.FullScreenMode = settings.FullScreenModeWindowed
	}

	s.logger.Debug(ctx, "full-screen mode toggled", logger.String("mode", g.FullScreenMode))
	return g.FullScreenMode, nil
}

// InitResolution stores res as the screen resolution unless one was already
// recorded. It reports whether the settings changed.
func (s *Service) InitResolution(ctx context.Context, res settings.ScreenResolution) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.current(ctx)
	if err != nil {
		return false, err
	}
	if !cur.Graphics.Resolution.IsZero() || res.IsZero() {
		return false, nil
	}
	cur.Graphics.Resolution = res
	s.logger.Info(ctx, "screen resolution initialized",
		logger.Int("width", res.Width),
		logger.Int("height", res.Height),
		logger.Int("refreshRate", res.RefreshRate),
	)
	return true, nil
}

// GetStats returns service state for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"started":           s.started,
		"stopped":           s.stopped,
		"settingsPath":      s.settings.Path(),
		"maxRankingEntries": s.maxEntries,
	}
}

// current returns the settings aggregate. Callers hold s.mu.
func (s *Service) current(ctx context.Context) (*settings.Settings, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.settings.Current(ctx)
}

func (s *Service) ready() error {
	switch {
	case s.stopped:
		return ErrStopped
	case !s.started:
		return ErrNotStarted
	}
	return nil
}
