package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/lyricsync/internal/transcript/fuzzy"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":    {"openai", "groq", "whisper", "deepgram"},
	"lyrics": {"genius", "file"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// from the environment, applies defaults and validates the result.
// An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Lyrics
	if cfg.Lyrics.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("lyrics.chunk_size %d must not be negative", cfg.Lyrics.ChunkSize))
	} else if cfg.Lyrics.ChunkSize > 0 && cfg.Lyrics.ChunkSize < 20 {
		slog.Warn("lyrics.chunk_size is very small; matches will lack context", "chunk_size", cfg.Lyrics.ChunkSize)
	}

	// Align
	if cfg.Align.Threshold < 0 || cfg.Align.Threshold > 100 {
		errs = append(errs, fmt.Errorf("align.threshold %.2f is out of range [0, 100]", cfg.Align.Threshold))
	} else if cfg.Align.Threshold > 0 && cfg.Align.Threshold < 50 {
		slog.Warn("align.threshold is low; unrelated lyrics may overwrite transcriptions", "threshold", cfg.Align.Threshold)
	}
	if _, err := fuzzy.ByName(cfg.Align.Scorer); err != nil {
		errs = append(errs, fmt.Errorf("align.scorer %q is invalid; valid values: %s, %s, %s",
			cfg.Align.Scorer, fuzzy.NameTokenSort, fuzzy.NameJaroWinkler, fuzzy.NamePhonetic))
	}
	if cfg.Align.Workers < 0 {
		errs = append(errs, fmt.Errorf("align.workers %d must not be negative", cfg.Align.Workers))
	}

	// Timeline
	for name, v := range map[string]float64{
		"word_duration":     cfg.Timeline.WordDuration,
		"base_pause":        cfg.Timeline.BasePause,
		"long_phrase_bonus": cfg.Timeline.LongPhraseBonus,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("timeline.%s %.2f must not be negative", name, v))
		}
	}
	if cfg.Timeline.LongPhraseWords < 0 {
		errs = append(errs, fmt.Errorf("timeline.long_phrase_words %d must not be negative", cfg.Timeline.LongPhraseWords))
	}

	// Providers
	errs = append(errs, validateEntry("stt", "providers.stt", cfg.Providers.STT)...)
	errs = append(errs, validateEntry("lyrics", "providers.lyrics", cfg.Providers.Lyrics)...)
	if cfg.Providers.Lyrics.Name == "" {
		slog.Warn("providers.lyrics is empty; segments are only aligned when lyrics are passed inline")
	}

	// Store
	if cfg.Store.Driver != "" {
		if !cfg.Store.Driver.IsValid() {
			errs = append(errs, fmt.Errorf("store.driver %q is invalid; valid values: postgres, sqlite", cfg.Store.Driver))
		}
		if cfg.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required when store.driver is %q", cfg.Store.Driver))
		}
	}

	return errors.Join(errs...)
}

// validateEntry checks a provider entry and its fallbacks.
func validateEntry(kind, prefix string, e ProviderEntry) []error {
	var errs []error
	validateProviderName(kind, e.Name)
	if e.Name == "" && len(e.Fallbacks) > 0 {
		errs = append(errs, fmt.Errorf("%s.name is required when fallbacks are configured", prefix))
	}
	for i, fb := range e.Fallbacks {
		p := fmt.Sprintf("%s.fallbacks[%d]", prefix, i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", p))
		}
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s.fallbacks must not be nested", p))
		}
		validateProviderName(kind, fb.Name)
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
