package repository

import "errors"

// Sentinel kinds for statistics errors.
var (
	ErrInvalidSongID       = errors.New("invalid song id")
	ErrMalformedStatistics = errors.New("malformed statistics file")
	ErrReadStatistics      = errors.New("read statistics file")
	ErrWriteStatistics     = errors.New("write statistics file")
)
