// Package config provides the configuration schema, loader, hot-reload
// watcher and provider registry for lyricsync.
package config

import (
	"github.com/MrWong99/lyricsync/internal/lyrics"
	"github.com/MrWong99/lyricsync/internal/timeline"
	"github.com/MrWong99/lyricsync/internal/transcript"
	"github.com/MrWong99/lyricsync/internal/transcript/fuzzy"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StoreDriver selects the run persistence backend.
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
)

// IsValid reports whether d is a recognised store driver.
func (d StoreDriver) IsValid() bool {
	return d == StorePostgres || d == StoreSQLite
}

// Config is the root configuration structure for lyricsync.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Lyrics    LyricsConfig    `yaml:"lyrics"`
	Align     AlignConfig     `yaml:"align"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Providers ProvidersConfig `yaml:"providers"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// LyricsConfig tunes how reference lyrics are cleaned and chunked.
type LyricsConfig struct {
	// ChunkSize is the character count a chunk must exceed before it is
	// closed. Default: 60.
	ChunkSize int `yaml:"chunk_size"`

	// ExtraBoilerplate adds case-insensitive substrings that mark a line as
	// lyric-site boilerplate.
	ExtraBoilerplate []string `yaml:"extra_boilerplate"`
}

// AlignConfig tunes the fuzzy aligner.
type AlignConfig struct {
	// Threshold is the score a best match must exceed to replace a segment's
	// text. Default: 80.
	Threshold float64 `yaml:"threshold"`

	// Scorer names the similarity metric: token_sort (default),
	// jaro_winkler or phonetic.
	Scorer string `yaml:"scorer"`

	// Workers bounds concurrent segment scoring. 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`

	// FoldCase enables case-insensitive scoring.
	FoldCase bool `yaml:"fold_case"`
}

// TimelineConfig holds the synthetic timeline constants, in seconds.
type TimelineConfig struct {
	WordDuration    float64  `yaml:"word_duration"`
	BasePause       float64  `yaml:"base_pause"`
	LongPhraseBonus float64  `yaml:"long_phrase_bonus"`
	LongPhraseWords int      `yaml:"long_phrase_words"`
	FillerWords     []string `yaml:"filler_words"`
}

// ProvidersConfig declares which provider implementation backs each external
// collaborator. Each entry selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT    ProviderEntry `yaml:"stt"`
	Lyrics ProviderEntry `yaml:"lyrics"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "whisper", "genius").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered by the standard
	// fields above.
	Options map[string]any `yaml:"options"`

	// Fallbacks are tried in order when the primary provider fails.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// StoreConfig selects where processed runs are persisted. An empty driver
// disables persistence.
type StoreConfig struct {
	Driver StoreDriver `yaml:"driver"`

	// DSN is a Postgres connection string or an SQLite file path.
	DSN string `yaml:"dsn"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	// ServiceName is reported as the service.name resource attribute.
	// Default: "lyricsync".
	ServiceName string `yaml:"service_name"`
}

// Default values applied by [Config.ApplyDefaults].
const (
	DefaultListenAddr  = ":8080"
	DefaultServiceName = "lyricsync"
)

// ApplyDefaults fills every zero-valued tunable with its default.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Lyrics.ChunkSize == 0 {
		c.Lyrics.ChunkSize = lyrics.DefaultChunkSize
	}
	if c.Align.Threshold == 0 {
		c.Align.Threshold = transcript.DefaultThreshold
	}
	if c.Align.Scorer == "" {
		c.Align.Scorer = fuzzy.NameTokenSort
	}
	if c.Timeline.WordDuration == 0 {
		c.Timeline.WordDuration = timeline.DefaultWordDuration
	}
	if c.Timeline.BasePause == 0 {
		c.Timeline.BasePause = timeline.DefaultBasePause
	}
	if c.Timeline.LongPhraseBonus == 0 {
		c.Timeline.LongPhraseBonus = timeline.DefaultLongPhraseBonus
	}
	if c.Timeline.LongPhraseWords == 0 {
		c.Timeline.LongPhraseWords = timeline.DefaultLongPhraseWords
	}
	if c.Timeline.FillerWords == nil {
		c.Timeline.FillerWords = append([]string(nil), timeline.DefaultFillers...)
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// NewNormalizer builds the lyrics normalizer described by c.
func (c LyricsConfig) NewNormalizer() *lyrics.Normalizer {
	return lyrics.NewNormalizer(lyrics.WithBoilerplate(c.ExtraBoilerplate...))
}

// NewSynthesizer builds the timeline synthesizer described by c. Call
// [Config.ApplyDefaults] first; zero values are used as given.
func (c TimelineConfig) NewSynthesizer() *timeline.Synthesizer {
	opts := []timeline.Option{
		timeline.WithWordDuration(c.WordDuration),
		timeline.WithBasePause(c.BasePause),
		timeline.WithLongPhraseBonus(c.LongPhraseBonus),
		timeline.WithLongPhraseWords(c.LongPhraseWords),
	}
	if c.FillerWords != nil {
		opts = append(opts, timeline.WithFillers(c.FillerWords...))
	}
	return timeline.New(opts...)
}

// NewScorer builds the similarity scorer described by c.
func (c AlignConfig) NewScorer() (fuzzy.Scorer, error) {
	var opts []fuzzy.Option
	if c.FoldCase {
		opts = append(opts, fuzzy.WithFold())
	}
	return fuzzy.ByName(c.Scorer, opts...)
}
