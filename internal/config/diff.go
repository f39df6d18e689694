package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; providers, store
// and listen address need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	LyricsChanged   bool
	AlignChanged    bool
	TimelineChanged bool

	// RestartRequired is set when a field that cannot be hot-reloaded
	// changed.
	RestartRequired bool
}

// Any reports whether anything hot-reloadable changed.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.LyricsChanged || d.AlignChanged || d.TimelineChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Lyrics.ChunkSize != new.Lyrics.ChunkSize ||
		!slices.Equal(old.Lyrics.ExtraBoilerplate, new.Lyrics.ExtraBoilerplate) {
		d.LyricsChanged = true
	}

	if old.Align != new.Align {
		d.AlignChanged = true
	}

	ot, nt := old.Timeline, new.Timeline
	if ot.WordDuration != nt.WordDuration ||
		ot.BasePause != nt.BasePause ||
		ot.LongPhraseBonus != nt.LongPhraseBonus ||
		ot.LongPhraseWords != nt.LongPhraseWords ||
		!slices.Equal(ot.FillerWords, nt.FillerWords) {
		d.TimelineChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Store != new.Store ||
		old.Telemetry != new.Telemetry ||
		!reflect.DeepEqual(old.Providers, new.Providers) {
		d.RestartRequired = true
	}

	return d
}
