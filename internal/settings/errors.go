package settings

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMalformedOverlay  = errors.New("malformed settings overlay")
	ErrMalformedSettings = errors.New("malformed settings file")
	ErrReadSettings      = errors.New("read settings file failed")
	ErrWriteSettings     = errors.New("write settings file failed")
	ErrNotLoaded         = errors.New("settings not loaded")
	ErrClosed            = errors.New("settings store closed")
)
