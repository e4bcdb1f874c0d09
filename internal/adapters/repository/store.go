// Package repository persists per-song rankings and play time.
package repository

import (
	"context"
	"time"

	"github.com/okian/singalong/internal/domain/ranking"
)

// Store provides read/write access to recorded song statistics.
type Store interface {
	// Load returns the ranking stored for songID. A song without records
	// yields an empty set.
	Load(ctx context.Context, songID string) (*ranking.Set, error)

	// Save replaces the stored ranking of songID with set.
	Save(ctx context.Context, songID string, set *ranking.Set) error

	// Songs returns the IDs of every song with stored statistics, sorted.
	Songs(ctx context.Context) ([]string, error)

	// TotalPlayTime returns the accumulated time spent singing.
	TotalPlayTime(ctx context.Context) (time.Duration, error)

	// AddPlayTime adds d to the play time of songID and to the total.
	AddPlayTime(ctx context.Context, songID string, d time.Duration) error
}
