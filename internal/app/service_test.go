package service_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/singalong/internal/adapters/repository"
	service "github.com/okian/singalong/internal/app"
	"github.com/okian/singalong/internal/domain/ranking"
	"github.com/okian/singalong/internal/settings"
	"github.com/okian/singalong/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithOutput(io.Discard))
	if err != nil {
		panic(err)
	}
}

// fakeStats is an in-memory repository.Store.
type fakeStats struct {
	sets     map[string][]ranking.SongStatistic
	playTime time.Duration
	saveErr  error
	saves    int
}

func newFakeStats() *fakeStats {
	return &fakeStats{sets: map[string][]ranking.SongStatistic{}}
}

func (f *fakeStats) Load(_ context.Context, songID string) (*ranking.Set, error) {
	if songID == "" {
		return nil, repository.ErrInvalidSongID
	}
	return ranking.NewSet(f.sets[songID]...), nil
}

func (f *fakeStats) Save(_ context.Context, songID string, set *ranking.Set) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.sets[songID] = set.All()
	return nil
}

func (f *fakeStats) Songs(context.Context) ([]string, error) {
	out := []string{}
	for id := range f.sets {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeStats) TotalPlayTime(context.Context) (time.Duration, error) {
	return f.playTime, nil
}

func (f *fakeStats) AddPlayTime(_ context.Context, _ string, d time.Duration) error {
	f.playTime += d
	return nil
}

func newService(t *testing.T, stats repository.Store, opts ...service.Option) (*service.Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), settings.DefaultFileName)
	store := settings.New(settings.WithPathResolver(settings.NewPathResolver(
		settings.WithOverride(func() string { return path }),
	)))
	opts = append([]service.Option{
		service.WithSettingsStore(store),
		service.WithStatisticsStore(stats),
	}, opts...)
	return service.New(opts...), path
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc, path := newService(t, newFakeStats())

		Convey("When it is used before Start", func() {
			_, err := svc.Settings(ctx)

			Convey("Then it reports that it is not started", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When it is started twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then the settings are available", func() {
				cur, err := svc.Settings(ctx)
				So(err, ShouldBeNil)
				So(cur.Audio.VolumePercent, ShouldEqual, 100)
				So(svc.SettingsPath(), ShouldEqual, path)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})
		})

		Convey("When settings are saved and then reloaded", func() {
			So(svc.Start(ctx), ShouldBeNil)
			cur, err := svc.Settings(ctx)
			So(err, ShouldBeNil)
			cur.Developer.ShowFps = true
			So(svc.SaveSettings(ctx), ShouldBeNil)
			cur.Developer.ShowFps = false

			reloaded, err := svc.ReloadSettings(ctx)

			Convey("Then the saved value comes back into the same aggregate", func() {
				So(err, ShouldBeNil)
				So(reloaded, ShouldPointTo, cur)
				So(cur.Developer.ShowFps, ShouldBeTrue)
			})
		})

		Convey("When it is stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			cur, err := svc.Settings(ctx)
			So(err, ShouldBeNil)
			cur.Game.Language = "fr"
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the settings were saved", func() {
				reloaded, err := settings.New(settings.WithPathResolver(settings.NewPathResolver(
					settings.WithOverride(func() string { return path }),
				))).Current(ctx)
				So(err, ShouldBeNil)
				So(reloaded.Game.Language, ShouldEqual, "fr")
			})

			Convey("Then the service cannot be used or restarted", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
				_, err := svc.ToggleMute(ctx)
				So(errors.Is(err, service.ErrStopped), ShouldBeTrue)
			})
		})
	})
}

func TestService_RecordPerformance(t *testing.T) {
	Convey("Given a started service keeping three entries per song", t, func() {
		ctx := context.Background()
		stats := newFakeStats()
		clock := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
		svc, _ := newService(t, stats,
			service.WithMaxRankingEntries(3),
			service.WithClock(func() time.Time {
				clock = clock.Add(time.Minute)
				return clock
			}),
		)
		So(svc.Start(ctx), ShouldBeNil)

		record := func(score int) int {
			_, rank, err := svc.RecordPerformance(ctx, service.Performance{
				SongID:     "song",
				PlayerName: "anna",
				Difficulty: ranking.DifficultyMedium,
				Score:      score,
				Duration:   3 * time.Minute,
			})
			So(err, ShouldBeNil)
			return rank
		}

		Convey("When scores 50, 90, 70 are recorded", func() {
			So(record(50), ShouldEqual, 1)
			So(record(90), ShouldEqual, 1)
			So(record(70), ShouldEqual, 2)

			Convey("Then the ranking is best-first", func() {
				top, err := svc.TopScores(ctx, "song", 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 3)
				So(top[0].Score, ShouldEqual, 90)
				So(top[1].Score, ShouldEqual, 70)
				So(top[2].Score, ShouldEqual, 50)
			})

			Convey("Then play time accumulates", func() {
				total, err := svc.TotalPlayTime(ctx)
				So(err, ShouldBeNil)
				So(total, ShouldEqual, 9*time.Minute)
			})

			Convey("When a better score arrives on a full ranking", func() {
				So(record(80), ShouldEqual, 2)

				Convey("Then the worst entry is dropped", func() {
					top, err := svc.TopScores(ctx, "song", 10)
					So(err, ShouldBeNil)
					So(len(top), ShouldEqual, 3)
					So(top[2].Score, ShouldEqual, 70)
				})
			})

			Convey("When a worse score arrives on a full ranking", func() {
				So(record(10), ShouldEqual, 0)

				Convey("Then the ranking is unchanged", func() {
					top, err := svc.TopScores(ctx, "song", 10)
					So(err, ShouldBeNil)
					So(top[2].Score, ShouldEqual, 50)
				})
			})

			Convey("When an equal score arrives later", func() {
				So(record(70), ShouldEqual, 3)
			})
		})

		Convey("When the input is invalid", func() {
			_, _, scoreErr := svc.RecordPerformance(ctx, service.Performance{SongID: "song", Difficulty: ranking.DifficultyEasy, Score: -1})
			_, _, diffErr := svc.RecordPerformance(ctx, service.Performance{SongID: "song", Score: 1})
			_, _, songErr := svc.RecordPerformance(ctx, service.Performance{Difficulty: ranking.DifficultyEasy, Score: 1})

			Convey("Then nothing is stored", func() {
				So(errors.Is(scoreErr, service.ErrInvalidScore), ShouldBeTrue)
				So(errors.Is(diffErr, ranking.ErrUnknownDifficulty), ShouldBeTrue)
				So(errors.Is(songErr, repository.ErrInvalidSongID), ShouldBeTrue)
				So(stats.saves, ShouldEqual, 0)
			})
		})

		Convey("When the statistics cannot be saved", func() {
			stats.saveErr = repository.ErrWriteStatistics
			_, rank, err := svc.RecordPerformance(ctx, service.Performance{SongID: "song", Difficulty: ranking.DifficultyEasy, Score: 1})

			Convey("Then the error is returned", func() {
				So(errors.Is(err, repository.ErrWriteStatistics), ShouldBeTrue)
				So(rank, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Toggles(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, path := newService(t, newFakeStats())
		So(svc.Start(ctx), ShouldBeNil)
		cur, err := svc.Settings(ctx)
		So(err, ShouldBeNil)
		cur.Audio.VolumePercent = 65

		Convey("When mute is toggled twice", func() {
			muted, err := svc.ToggleMute(ctx)
			So(err, ShouldBeNil)
			restored, err := svc.ToggleMute(ctx)
			So(err, ShouldBeNil)

			Convey("Then the volume goes to zero and back", func() {
				So(muted, ShouldEqual, 0)
				So(restored, ShouldEqual, 65)
				So(cur.Audio.VolumePercent, ShouldEqual, 65)
			})
		})

		Convey("When the volume is zero but not muted", func() {
			cur.Audio.VolumePercent = 0
			muted, err := svc.ToggleMute(ctx)
			So(err, ShouldBeNil)
			restored, err := svc.ToggleMute(ctx)
			So(err, ShouldBeNil)

			Convey("Then muting and unmuting keep it at zero", func() {
				So(muted, ShouldEqual, 0)
				So(restored, ShouldEqual, 0)
				So(cur.Audio.Muted(), ShouldBeFalse)
			})
		})

		Convey("When the service is muted, saved and reopened", func() {
			_, err := svc.ToggleMute(ctx)
			So(err, ShouldBeNil)
			So(svc.SaveSettings(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			again := service.New(
				service.WithSettingsStore(settings.New(settings.WithPathResolver(settings.NewPathResolver(
					settings.WithOverride(func() string { return path }),
				)))),
				service.WithStatisticsStore(newFakeStats()),
			)
			So(again.Start(ctx), ShouldBeNil)
			defer func() { _ = again.Stop(ctx) }()
			vol, err := again.ToggleMute(ctx)

			Convey("Then unmuting restores the volume from before the mute", func() {
				So(err, ShouldBeNil)
				So(vol, ShouldEqual, 65)
			})
		})

		Convey("When full screen is toggled twice", func() {
			first, err := svc.ToggleFullscreen(ctx)
			So(err, ShouldBeNil)
			second, err := svc.ToggleFullscreen(ctx)
			So(err, ShouldBeNil)

			Convey("Then the mode flips and returns", func() {
				So(first, ShouldEqual, settings.FullScreenModeWindowed)
				So(second, ShouldEqual, settings.FullScreenModeFullScreenWindow)
				So(cur.Graphics.FullScreenMode, ShouldEqual, settings.FullScreenModeFullScreenWindow)
			})
		})

		Convey("When the resolution is initialized", func() {
			res := settings.ScreenResolution{Width: 1920, Height: 1080, RefreshRate: 60}
			changed, err := svc.InitResolution(ctx, res)
			So(err, ShouldBeNil)
			again, err := svc.InitResolution(ctx, settings.ScreenResolution{Width: 800, Height: 600})
			So(err, ShouldBeNil)

			Convey("Then only the first call is stored", func() {
				So(changed, ShouldBeTrue)
				So(again, ShouldBeFalse)
				So(cur.Graphics.Resolution, ShouldResemble, res)
			})
		})
	})
}
