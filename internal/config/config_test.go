package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/MrWong99/lyricsync/internal/config"
	"github.com/MrWong99/lyricsync/internal/timeline"
	"github.com/MrWong99/lyricsync/internal/transcript/fuzzy"
	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
	lyricsmock "github.com/MrWong99/lyricsync/pkg/provider/lyrics/mock"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
	sttmock "github.com/MrWong99/lyricsync/pkg/provider/stt/mock"
)

const fullYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
lyrics:
  chunk_size: 80
  extra_boilerplate: ["translation"]
align:
  threshold: 85
  scorer: phonetic
  workers: 4
  fold_case: true
timeline:
  word_duration: 0.2
  base_pause: 0.3
  long_phrase_bonus: 0.1
  long_phrase_words: 8
  filler_words: [yeah]
providers:
  stt:
    name: openai
    api_key: sk-test
    model: whisper-1
    fallbacks:
      - name: whisper
        base_url: http://localhost:8081
  lyrics:
    name: genius
    api_key: token
    options:
      site_base_url: https://genius.example
store:
  driver: sqlite
  dsn: /tmp/runs.db
telemetry:
  service_name: karaoke
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Lyrics.ChunkSize != 80 || !reflect.DeepEqual(cfg.Lyrics.ExtraBoilerplate, []string{"translation"}) {
		t.Errorf("Lyrics = %+v", cfg.Lyrics)
	}
	if want := (config.AlignConfig{Threshold: 85, Scorer: "phonetic", Workers: 4, FoldCase: true}); cfg.Align != want {
		t.Errorf("Align = %+v, want %+v", cfg.Align, want)
	}
	if cfg.Timeline.LongPhraseWords != 8 || !reflect.DeepEqual(cfg.Timeline.FillerWords, []string{"yeah"}) {
		t.Errorf("Timeline = %+v", cfg.Timeline)
	}
	se := cfg.Providers.STT
	if se.Name != "openai" || se.APIKey != "sk-test" || len(se.Fallbacks) != 1 || se.Fallbacks[0].BaseURL != "http://localhost:8081" {
		t.Errorf("Providers.STT = %+v", se)
	}
	if got := cfg.Providers.Lyrics.OptionString("site_base_url", ""); got != "https://genius.example" {
		t.Errorf("lyrics option = %q", got)
	}
	if cfg.Store.Driver != config.StoreSQLite || cfg.Store.DSN != "/tmp/runs.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Telemetry.ServiceName != "karaoke" {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoadFromReader_EmptyYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if !reflect.DeepEqual(cfg, config.Default()) {
		t.Errorf("empty config = %+v, want defaults %+v", cfg, config.Default())
	}
	if cfg.Lyrics.ChunkSize != 60 || cfg.Align.Threshold != 80 || cfg.Align.Scorer != fuzzy.NameTokenSort {
		t.Errorf("defaults = %+v / %+v", cfg.Lyrics, cfg.Align)
	}
	if cfg.Timeline.WordDuration != timeline.DefaultWordDuration || cfg.Timeline.BasePause != timeline.DefaultBasePause {
		t.Errorf("timeline defaults = %+v", cfg.Timeline)
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("LYRICSYNC_TEST_GENIUS_TOKEN", "secret-token")

	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  lyrics:
    name: genius
    api_key: ${LYRICSYNC_TEST_GENIUS_TOKEN}
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if got := cfg.Providers.Lyrics.APIKey; got != "secret-token" {
		t.Errorf("APIKey = %q, want expanded env value", got)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("align:\n  treshold: 80\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lyricsync.yaml")
	writeFile(t, path, "align:\n  threshold: 90\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Align.Threshold != 90 {
		t.Errorf("Threshold = %v", cfg.Align.Threshold)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) err = %v, want ErrNotExist", err)
	}
}

func TestConfig_Builders(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	s, err := cfg.Align.NewScorer()
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	if s.Name() != fuzzy.NamePhonetic {
		t.Errorf("scorer = %q", s.Name())
	}

	groups := cfg.Timeline.NewSynthesizer().Synthesize("one two yeah three")
	if len(groups) != 2 || groups[0].End != 0.4 {
		t.Errorf("groups = %+v", groups)
	}

	lines := cfg.Lyrics.NewNormalizer().Normalize("English Translation here\nI walk alone")
	if !reflect.DeepEqual(lines, []string{"I walk alone"}) {
		t.Errorf("lines = %q", lines)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := config.NewRegistry()
	r.RegisterSTT("mock", func(e config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})
	r.RegisterLyrics("mock", func(e config.ProviderEntry) (lyrics.Provider, error) {
		return &lyricsmock.Provider{Text: e.APIKey}, nil
	})

	if _, err := r.CreateSTT(config.ProviderEntry{Name: "mock"}); err != nil {
		t.Errorf("CreateSTT: %v", err)
	}
	p, err := r.CreateLyrics(config.ProviderEntry{Name: "mock", APIKey: "k"})
	if err != nil {
		t.Fatalf("CreateLyrics: %v", err)
	}
	if p.(*lyricsmock.Provider).Text != "k" {
		t.Error("factory did not receive the entry")
	}

	if _, err := r.CreateSTT(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT(nope) err = %v", err)
	}
	if _, err := r.CreateLyrics(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateLyrics(nope) err = %v", err)
	}
	if got := r.STTNames(); !reflect.DeepEqual(got, []string{"mock"}) {
		t.Errorf("STTNames = %q", got)
	}
}

func TestProviderEntry_Options(t *testing.T) {
	t.Parallel()

	e := config.ProviderEntry{Options: map[string]any{"lang": "de", "temp": 0.4, "n": 3, "bad": true}}
	if got := e.OptionString("lang", "en"); got != "de" {
		t.Errorf("OptionString = %q", got)
	}
	if got := e.OptionString("missing", "en"); got != "en" {
		t.Errorf("OptionString default = %q", got)
	}
	if got := e.OptionFloat("temp", 0); got != 0.4 {
		t.Errorf("OptionFloat = %v", got)
	}
	if got := e.OptionFloat("n", 0); got != 3 {
		t.Errorf("OptionFloat int = %v", got)
	}
	if got := e.OptionFloat("bad", 1.5); got != 1.5 {
		t.Errorf("OptionFloat default = %v", got)
	}
}
