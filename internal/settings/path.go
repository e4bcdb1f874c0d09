package settings

import (
	"os"
	"path/filepath"
	"sync"
)

// Default file and directory names.
const (
	DefaultFileName = "Settings.json"
	AppDirName      = "singalong"
)

// PathResolver decides where the settings file lives. The first call to
// ResolvePath fixes the answer for the lifetime of the resolver, so the
// settings are always written back to the file they were loaded from.
type PathResolver struct {
	override func() string
	dataDir  func() string
	fileName string

	once sync.Once
	path string
}

// PathOption configures a PathResolver.
type PathOption func(*PathResolver)

// WithOverride sets the lookup for an explicit path, e.g. a --settingsPath
// launch argument. The value may be quote-wrapped.
func WithOverride(lookup func() string) PathOption {
	return func(r *PathResolver) {
		if lookup != nil {
			r.override = lookup
		}
	}
}

// WithDataDir replaces the persistent-data directory used for the default path.
func WithDataDir(dir string) PathOption {
	return func(r *PathResolver) {
		if dir != "" {
			r.dataDir = func() string { return dir }
		}
	}
}

// WithFileName replaces the default file name.
func WithFileName(name string) PathOption {
	return func(r *PathResolver) {
		if name != "" {
			r.fileName = name
		}
	}
}

// NewPathResolver constructs a resolver. Without options it resolves to
// Settings.json in the platform persistent-data directory.
func NewPathResolver(opts ...PathOption) *PathResolver {
	r := &PathResolver{
		override: func() string { return "" },
		dataDir:  PersistentDataDir,
		fileName: DefaultFileName,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolvePath returns the settings file path, computing it on first use.
func (r *PathResolver) ResolvePath() string {
	r.once.Do(func() {
		if p := Unquote(r.override()); p != "" {
			r.path = p
			return
		}
		r.path = filepath.Join(r.dataDir(), r.fileName)
	})
	return r.path
}

// PersistentDataDir returns the platform directory for user data:
// the user config dir, then the home dir, then the working directory.
func PersistentDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, AppDirName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, "."+AppDirName)
	}
	return AppDirName
}
