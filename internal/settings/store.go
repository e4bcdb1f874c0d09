// Package settings owns the user Settings aggregate: where its file lives,
// how it is loaded and saved, and how a launch-time overlay is merged in.
//
// A Store is created once by the composition root and passed to every
// consumer. It is not safe for concurrent use; the owning goroutine must
// serialize calls.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/singalong/pkg/atomicfile"
	"github.com/okian/singalong/pkg/logger"
	"github.com/okian/singalong/pkg/metrics"
)

// Load sources reported to metrics.
const (
	sourceFile    = "file"
	sourceDefault = "default"
)

// Store holds the process's single Settings aggregate.
type Store struct {
	resolver *PathResolver
	overlay  func() string
	defaults func() *Settings
	logger   logger.Logger

	current *Settings
	closed  bool
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithPathResolver sets the resolver used to locate the settings file.
func WithPathResolver(r *PathResolver) Option {
	return func(s *Store) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithOverlay sets the lookup for the raw overlay document. It is consulted
// on every reload.
func WithOverlay(lookup func() string) Option {
	return func(s *Store) {
		if lookup != nil {
			s.overlay = lookup
		}
	}
}

// WithDefaults replaces the built-in defaults.
func WithDefaults(fn func() *Settings) Option {
	return func(s *Store) {
		if fn != nil {
			s.defaults = fn
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Store. Nothing is read from disk until EnsureLoaded,
// Current or Reload is called.
func New(opts ...Option) *Store {
	s := &Store{
		overlay:  func() string { return "" },
		defaults: Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = NewPathResolver()
	}
	if s.logger == nil {
		s.logger = logger.Named("settings")
	}
	return s
}

// Path returns the resolved settings file path.
func (s *Store) Path() string {
	return s.resolver.ResolvePath()
}

// EnsureLoaded performs the first load if it has not happened yet.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	_, err := s.Current(ctx)
	return err
}

// Current returns the aggregate, loading it on first use.
func (s *Store) Current(ctx context.Context) (*Settings, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.current != nil {
		return s.current, nil
	}
	return s.Reload(ctx)
}

// Reload reads the settings file, or creates it from defaults when it is
// missing, then merges the overlay. The aggregate is updated in place, so
// pointers handed out earlier observe the reloaded values.
//
// A file that exists but cannot be decoded is reported as
// ErrMalformedSettings and left untouched on disk; the in-memory aggregate
// is not modified either.
func (s *Store) Reload(ctx context.Context) (*Settings, error) {
	if s.closed {
		return nil, ErrClosed
	}

	start := time.Now()
	path := s.Path()

	loaded, source, err := s.load(ctx, path)
	if err != nil {
		metrics.RecordSettingsLoadError()
		metrics.RecordErrorByComponent("settings", "load")
		s.logger.Error(ctx, "loading settings failed", logger.String("path", path), logger.Error(err))
		return nil, err
	}

	if source == sourceDefault {
		s.logger.Warn(ctx, "settings file not found; creating default settings", logger.String("path", path))
		if err := s.write(path, loaded); err != nil {
			// The defaults stay in memory; the next Save retries the write.
			metrics.RecordSettingsSaveError()
			s.logger.Error(ctx, "persisting default settings failed", logger.String("path", path), logger.Error(err))
		}
	}

	s.applyOverlay(ctx, loaded)

	if s.current == nil {
		s.current = loaded
	} else {
		*s.current = *loaded
	}

	elapsed := time.Since(start)
	metrics.RecordSettingsLoad(source, float64(elapsed.Microseconds())/1000)
	s.logger.Debug(ctx, "settings loaded",
		logger.String("path", path),
		logger.String("source", source),
		logger.Duration("took", elapsed),
	)
	return s.current, nil
}

// Save writes the aggregate to the resolved path, replacing the file.
// The write goes through a temporary file, so a failure leaves the
// previous file intact.
func (s *Store) Save(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.current == nil {
		return ErrNotLoaded
	}

	start := time.Now()
	path := s.Path()
	if err := s.write(path, s.current); err != nil {
		metrics.RecordSettingsSaveError()
		metrics.RecordErrorByComponent("settings", "write")
		s.logger.Error(ctx, "saving settings failed", logger.String("path", path), logger.Error(err))
		return err
	}

	elapsed := time.Since(start)
	metrics.RecordSettingsSave(float64(elapsed.Microseconds())/1000, float64(time.Now().Unix()))
	s.logger.Debug(ctx, "settings saved", logger.String("path", path), logger.Duration("took", elapsed))
	return nil
}

// Close saves the aggregate one last time and shuts the store. Any later
// call, including a second Close, returns ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	var err error
	if s.current != nil {
		err = s.Save(ctx)
	}
	s.closed = true
	return err
}

// load returns the aggregate stored at path, or the defaults if there is no file.
func (s *Store) load(ctx context.Context, path string) (*Settings, string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s.defaults(), sourceDefault, nil
		}
		return nil, "", fmt.Errorf("%w: %s: %w", ErrReadSettings, path, err)
	}

	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrReadSettings, path, err)
	}

	values, err := kjson.Parser().Unmarshal(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrMalformedSettings, path, err)
	}
	if values == nil {
		return nil, "", fmt.Errorf("%w: %s: document is not an object", ErrMalformedSettings, path)
	}

	// Fields missing from the file (written by an older version) keep their defaults.
	base, err := toMap(s.defaults())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedSettings, err)
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(base, ""), nil); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrMalformedSettings, err)
	}
	if err := k.Load(confmap.Provider(values, ""), nil); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrMalformedSettings, path, err)
	}

	out, unused, err := decode(k)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrMalformedSettings, path, err)
	}
	if len(unused) > 0 {
		s.logger.Debug(ctx, "settings file has unknown keys", logger.Strings("keys", unused))
	}
	return &out, sourceFile, nil
}

// applyOverlay merges the launch overlay into target. Overlay problems are
// logged and never fail the reload.
func (s *Store) applyOverlay(ctx context.Context, target *Settings) {
	patch, err := ParseOverlay(s.overlay())
	if err != nil {
		metrics.RecordOverlayRejected()
		s.logger.Error(ctx, "settings overlay ignored", logger.Error(err))
		return
	}
	if patch == nil {
		return
	}

	ignored, err := patch.Apply(target)
	if err != nil {
		metrics.RecordOverlayRejected()
		s.logger.Error(ctx, "settings overlay ignored", logger.Error(err))
		return
	}
	if len(ignored) > 0 {
		s.logger.Warn(ctx, "settings overlay has unknown keys", logger.Strings("keys", ignored))
	}
	metrics.RecordOverlayApplied()
	s.logger.Info(ctx, "settings overlay applied", logger.Strings("keys", patch.Keys()))
}

// write serializes v to path through a temporary file in the same directory.
func (s *Store) write(path string, v *Settings) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteSettings, err)
	}
	data = append(data, '\n')

	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteSettings, path, err)
	}
	return nil
}
