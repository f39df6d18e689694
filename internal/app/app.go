// Package app wires the lyricsync subsystems into one service.
//
// [App] owns the alignment pipeline, the timeline synthesizer, the optional
// run store and the configured providers. New builds everything from a
// [config.Config]; functional options inject test doubles. The CLI, the HTTP
// server and the MCP server all go through the same App.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/lyricsync/internal/config"
	"github.com/MrWong99/lyricsync/internal/observe"
	"github.com/MrWong99/lyricsync/internal/store"
	"github.com/MrWong99/lyricsync/internal/store/postgres"
	"github.com/MrWong99/lyricsync/internal/store/sqlite"
	"github.com/MrWong99/lyricsync/internal/timeline"
	"github.com/MrWong99/lyricsync/internal/transcript"
	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

// Providers holds one value per provider slot. Nil means not configured.
type Providers struct {
	STT    stt.Provider
	Lyrics lyrics.Provider

	// LyricsSource labels references obtained from Lyrics. Default:
	// "provider".
	LyricsSource string
}

// App is the lyricsync service.
type App struct {
	providers Providers
	store     store.Store
	metrics   *observe.Metrics
	log       *slog.Logger

	mu       sync.RWMutex
	cfg      *config.Config
	pipeline *transcript.CorrectionPipeline
	synth    *timeline.Synthesizer

	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithStore injects a run store instead of opening one from config.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics sets the metric instruments. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// New builds an App from cfg. providers may be nil when only inline
// segments and lyrics will be processed.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{log: slog.Default()}
	if providers != nil {
		a.providers = *providers
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx, cfg.Store); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	return a, nil
}

func (a *App) initStore(ctx context.Context, cfg config.StoreConfig) error {
	if a.store != nil || cfg.Driver == "" {
		return nil
	}
	var (
		s   store.Store
		err error
	)
	switch cfg.Driver {
	case config.StorePostgres:
		s, err = postgres.NewStore(ctx, cfg.DSN)
	case config.StoreSQLite:
		s, err = sqlite.NewStore(ctx, cfg.DSN)
	default:
		return fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return err
	}
	a.store = s
	a.closers = append(a.closers, s.Close)
	a.log.Info("run store ready", "driver", cfg.Driver)
	return nil
}

// ApplyConfig rebuilds the pipeline and synthesizer from cfg. Providers and
// the store are not affected. In-flight requests finish with the previous
// settings.
func (a *App) ApplyConfig(cfg *config.Config) error {
	scorer, err := cfg.Align.NewScorer()
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	pipeline := transcript.NewPipeline(
		transcript.WithThreshold(cfg.Align.Threshold),
		transcript.WithScorer(scorer),
		transcript.WithChunkSize(cfg.Lyrics.ChunkSize),
		transcript.WithNormalizer(cfg.Lyrics.NewNormalizer()),
		transcript.WithWorkers(cfg.Align.Workers),
		transcript.WithLogger(a.log),
	)
	synth := cfg.Timeline.NewSynthesizer()

	a.mu.Lock()
	a.cfg, a.pipeline, a.synth = cfg, pipeline, synth
	a.mu.Unlock()
	return nil
}

func (a *App) current() (*transcript.CorrectionPipeline, *timeline.Synthesizer) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pipeline, a.synth
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Store returns the run store, or nil when persistence is disabled.
func (a *App) Store() store.Store { return a.store }

// HasLyricsSource reports whether a lyrics provider is configured.
func (a *App) HasLyricsSource() bool { return a.providers.Lyrics != nil }

// HasSTT reports whether a transcription provider is configured.
func (a *App) HasSTT() bool { return a.providers.STT != nil }

// GetRun returns a stored run. Without a store every id is unknown.
func (a *App) GetRun(ctx context.Context, id string) (*store.Run, error) {
	if a.store == nil {
		return nil, fmt.Errorf("app: get run: %w", store.ErrNotFound)
	}
	return a.store.GetRun(ctx, id)
}

// Shutdown closes owned resources in order. Remaining closers are skipped
// once ctx is done.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for i, closer := range a.closers {
			if err := ctx.Err(); err != nil {
				a.log.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				errs = append(errs, err)
				return
			}
			if err := closer(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
