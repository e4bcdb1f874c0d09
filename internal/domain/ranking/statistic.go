// Package ranking holds per-song score records and the ordered set that ranks them.
package ranking

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty is the level a song was sung at. Higher values rank ahead on equal score.
type Difficulty int

// Difficulty levels.
const (
	DifficultyEasy Difficulty = iota + 1
	DifficultyMedium
	DifficultyHard
)

var difficultyNames = map[Difficulty]string{ //nolint:gochecknoglobals // lookup table
	DifficultyEasy:   "easy",
	DifficultyMedium: "medium",
	DifficultyHard:   "hard",
}

// String returns the lowercase name of the difficulty.
func (d Difficulty) String() string {
	if name, ok := difficultyNames[d]; ok {
		return name
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// ParseDifficulty converts a name such as "Hard" into a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for d, name := range difficultyNames {
		if name == want {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Difficulty) MarshalText() ([]byte, error) {
	if _, ok := difficultyNames[d]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDifficulty, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SongStatistic is one finished performance of a song. Treat values as
// immutable once they are in a Set; replace by Remove then Add.
type SongStatistic struct {
	ID         string     `json:"id"`
	SongID     string     `json:"songId"`
	PlayerName string     `json:"playerName"`
	Difficulty Difficulty `json:"difficulty"`
	Score      int        `json:"score"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewSongStatistic creates a record with a fresh random ID.
func NewSongStatistic(songID, playerName string, difficulty Difficulty, score int, at time.Time) SongStatistic {
	return SongStatistic{
		ID:         uuid.NewString(),
		SongID:     songID,
		PlayerName: playerName,
		Difficulty: difficulty,
		Score:      score,
		Timestamp:  at.UTC(),
	}
}

// Compare orders records best-first. It returns a negative number when a
// ranks ahead of b, zero when they are the same record, and a positive number
// otherwise.
//
// Order: score descending, then the earlier timestamp, the harder difficulty,
// player name and finally ID. The ID makes the order total over distinct records.
func Compare(a, b SongStatistic) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Difficulty, a.Difficulty); c != 0 {
		return c
	}
	if c := strings.Compare(a.PlayerName, b.PlayerName); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
