package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/okian/singalong/internal/domain/ranking"
	"github.com/okian/singalong/pkg/atomicfile"
	"github.com/okian/singalong/pkg/logger"
	"github.com/okian/singalong/pkg/metrics"
)

// DefaultFileName is the statistics file name, kept next to the settings file.
const DefaultFileName = "Statistics.json"

// Document paths.
const (
	pathPlayTime     = "playTimeSeconds"
	pathSongs        = "songs"
	keySongID        = "songId"
	keySongPlayTime  = "playTimeSeconds"
	keySongRanking   = "ranking"
	emptyDocument    = "{}"
	playTimeDecimals = 1000
)

// songNamespace scopes the name-based UUIDs used as song keys.
var songNamespace = uuid.MustParse("3b8f2a0e-5c1d-4f7a-9e62-0d4c8b1a7f35") //nolint:gochecknoglobals // constant namespace

var _ Store = (*FileStore)(nil)

// FileStore keeps all statistics in one JSON document:
//
//	{
//	  "playTimeSeconds": 812.5,
//	  "songs": {
//	    "<song key>": {"songId": "...", "playTimeSeconds": 201.2, "ranking": [...]}
//	  }
//	}
//
// Each operation reads the file, patches only the paths it owns and writes
// the whole document back, so keys written by other tools survive. Song keys
// are name-based UUIDs of the song ID, which keeps arbitrary IDs (paths,
// titles with dots) out of the JSON paths.
//
// A FileStore is not safe for concurrent use.
type FileStore struct {
	path   string
	logger logger.Logger
}

// NewFileStore constructs a store for the file at path.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("statistics")
	}
	return s
}

// Path returns the statistics file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.Load.
func (s *FileStore) Load(ctx context.Context, songID string) (*ranking.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := songKey(songID)
	if err != nil {
		return nil, err
	}
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	set := ranking.NewSet()
	arr := gjson.GetBytes(data, songPath(key, keySongRanking))
	if !arr.Exists() {
		return set, nil
	}
	if !arr.IsArray() {
		return nil, s.fail(ctx, fmt.Errorf("%w: ranking of %q is not an array", ErrMalformedStatistics, songID))
	}

	var decodeErr error
	arr.ForEach(func(_, v gjson.Result) bool {
		var rec ranking.SongStatistic
		if err := json.Unmarshal([]byte(v.Raw), &rec); err != nil {
			decodeErr = fmt.Errorf("%w: ranking of %q: %w", ErrMalformedStatistics, songID, err)
			return false
		}
		if rec.SongID == "" {
			rec.SongID = songID
		}
		set.Add(rec)
		return true
	})
	if decodeErr != nil {
		return nil, s.fail(ctx, decodeErr)
	}
	return set, nil
}

// Save implements Store.Save.
func (s *FileStore) Save(ctx context.Context, songID string, set *ranking.Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := songKey(songID)
	if err != nil {
		return err
	}
	records := []ranking.SongStatistic{}
	if set != nil {
		records = set.All()
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: ranking of %q: %w", ErrWriteStatistics, songID, err)
	}

	data, err := s.read(ctx)
	if err != nil {
		return err
	}
	if data, err = sjson.SetBytes(data, songPath(key, keySongID), songID); err != nil {
		return s.fail(ctx, fmt.Errorf("%w: %w", ErrWriteStatistics, err))
	}
	if data, err = sjson.SetRawBytes(data, songPath(key, keySongRanking), raw); err != nil {
		return s.fail(ctx, fmt.Errorf("%w: %w", ErrWriteStatistics, err))
	}
	if err := s.write(ctx, data); err != nil {
		return err
	}

	metrics.RecordRankingSize(len(records))
	metrics.UpdateStatisticsSongs(len(gjson.GetBytes(data, pathSongs).Map()))
	s.logger.Debug(ctx, "ranking saved",
		logger.String("song", songID),
		logger.Int("entries", len(records)),
	)
	return nil
}

// Songs implements Store.Songs.
func (s *FileStore) Songs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{}
	gjson.GetBytes(data, pathSongs).ForEach(func(_, v gjson.Result) bool {
		if id := v.Get(keySongID).String(); id != "" {
			out = append(out, id)
		}
		return true
	})
	slices.Sort(out)
	return out, nil
}

// TotalPlayTime implements Store.TotalPlayTime.
func (s *FileStore) TotalPlayTime(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := s.read(ctx)
	if err != nil {
		return 0, err
	}
	return seconds(gjson.GetBytes(data, pathPlayTime).Float()), nil
}

// AddPlayTime implements Store.AddPlayTime. Non-positive durations are ignored.
func (s *FileStore) AddPlayTime(ctx context.Context, songID string, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := songKey(songID)
	if err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	data, err := s.read(ctx)
	if err != nil {
		return err
	}

	for _, p := range []string{pathPlayTime, songPath(key, keySongPlayTime)} {
		total := round(gjson.GetBytes(data, p).Float() + d.Seconds())
		if data, err = sjson.SetBytes(data, p, total); err != nil {
			return s.fail(ctx, fmt.Errorf("%w: %w", ErrWriteStatistics, err))
		}
	}
	if data, err = sjson.SetBytes(data, songPath(key, keySongID), songID); err != nil {
		return s.fail(ctx, fmt.Errorf("%w: %w", ErrWriteStatistics, err))
	}
	return s.write(ctx, data)
}

// read returns the document, or an empty one if the file does not exist yet.
func (s *FileStore) read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []byte(emptyDocument), nil
		}
		return nil, s.fail(ctx, fmt.Errorf("%w: %s: %w", ErrReadStatistics, s.path, err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte(emptyDocument), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, s.fail(ctx, fmt.Errorf("%w: %s", ErrMalformedStatistics, s.path))
	}
	return data, nil
}

func (s *FileStore) write(ctx context.Context, data []byte) error {
	if err := atomicfile.WriteFile(s.path, data, 0o644); err != nil {
		return s.fail(ctx, fmt.Errorf("%w: %s: %w", ErrWriteStatistics, s.path, err))
	}
	return nil
}

// fail records err and hands it back.
func (s *FileStore) fail(ctx context.Context, err error) error {
	metrics.RecordStatisticsIOError()
	metrics.RecordErrorByComponent("statistics", errorType(err))
	s.logger.Error(ctx, "statistics file operation failed", logger.String("path", s.path), logger.Error(err))
	return err
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrMalformedStatistics):
		return "malformed"
	case errors.Is(err, ErrReadStatistics):
		return "read"
	default:
		return "write"
	}
}

func songKey(songID string) (string, error) {
	if strings.TrimSpace(songID) == "" {
		return "", ErrInvalidSongID
	}
	return uuid.NewSHA1(songNamespace, []byte(songID)).String(), nil
}

func songPath(key, field string) string {
	return pathSongs + "." + key + "." + field
}

func round(x float64) float64 { return math.Round(x*playTimeDecimals) / playTimeDecimals }

func seconds(x float64) time.Duration {
	return time.Duration(x * float64(time.Second))
}
