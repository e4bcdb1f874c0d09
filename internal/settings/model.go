package settings

// Full-screen modes stored in GraphicSettings.FullScreenMode.
const (
	FullScreenModeWindowed            = "Windowed"
	FullScreenModeFullScreenWindow    = "FullScreenWindow"
	FullScreenModeExclusiveFullScreen = "ExclusiveFullScreen"
)

// Settings is the full user configuration tree persisted as Settings.json.
//
// One instance exists per Store. Collaborators keep the *Settings returned
// by the Store and mutate it in place; Reload overwrites the same value.
type Settings struct {
	Graphics  GraphicSettings   `json:"graphicSettings"`
	Audio     AudioSettings     `json:"audioSettings"`
	Game      GameSettings      `json:"gameSettings"`
	Developer DeveloperSettings `json:"developerSettings"`
}

// ScreenResolution is a display mode. The zero value means "not detected yet".
type ScreenResolution struct {
	Width       int `json:"width"`
	Height      int `json:"height"`
	RefreshRate int `json:"refreshRate"`
}

// IsZero reports whether no resolution has been recorded.
func (r ScreenResolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

// GraphicSettings holds display options.
type GraphicSettings struct {
	Resolution     ScreenResolution `json:"resolution"`
	FullScreenMode string           `json:"fullScreenMode"`
	TargetFps      int              `json:"targetFps"`
}

// NotMuted is the VolumeBeforeMute value while audio is not muted.
const NotMuted = -1

// AudioSettings holds volume options. Percent values are 0..100.
type AudioSettings struct {
	VolumePercent          int  `json:"volumePercent"`
	PreviewVolumePercent   int  `json:"previewVolumePercent"`
	BackgroundMusicEnabled bool `json:"backgroundMusicEnabled"`
	// Volume to restore on unmute, or NotMuted.
	VolumeBeforeMute int `json:"volumeBeforeMute"`
}

// Muted reports whether the volume was muted and not yet restored.
func (a AudioSettings) Muted() bool {
	return a.VolumeBeforeMute >= 0
}

// GameSettings holds gameplay options.
type GameSettings struct {
	SongDirs            []string `json:"songDirs"`
	Language            string   `json:"language"`
	ShowPitchIndicator  bool     `json:"showPitchIndicator"`
	ShowLyricsOnNotes   bool     `json:"showLyricsOnNotes"`
	RatePlayersByScore  bool     `json:"ratePlayersByScore"`
	SongSelectSortOrder string   `json:"songSelectSortOrder"`
}

// DeveloperSettings holds diagnostics toggles.
type DeveloperSettings struct {
	ShowFps           bool `json:"showFps"`
	ReloadSongsOnBoot bool `json:"reloadSongsOnBoot"`
}

// Default returns the built-in settings used when no file exists yet.
func Default() *Settings {
	return &Settings{
		Graphics: GraphicSettings{
			FullScreenMode: FullScreenModeFullScreenWindow,
			TargetFps:      60,
		},
		Audio: AudioSettings{
			VolumePercent:          100,
			PreviewVolumePercent:   80,
			BackgroundMusicEnabled: true,
			VolumeBeforeMute:       NotMuted,
		},
		Game: GameSettings{
			SongDirs:            []string{},
			Language:            "en",
			ShowPitchIndicator:  true,
			RatePlayersByScore:  true,
			SongSelectSortOrder: "artist",
		},
	}
}
