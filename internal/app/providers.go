package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/lyricsync/internal/config"
	"github.com/MrWong99/lyricsync/internal/observe"
	"github.com/MrWong99/lyricsync/internal/resilience"
	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
)

// BuildProviders instantiates the configured providers through reg. Every
// slot with a primary is wrapped in a failover group, even without
// fallbacks, so that it gets a circuit breaker and per-provider metrics.
func BuildProviders(cfg config.ProvidersConfig, reg *config.Registry, m *observe.Metrics) (*Providers, error) {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	p := &Providers{}

	if cfg.STT.Name != "" {
		primary, err := reg.CreateSTT(cfg.STT)
		if err != nil {
			return nil, fmt.Errorf("app: stt %q: %w", cfg.STT.Name, err)
		}
		fb := resilience.NewSTTFallback(primary, cfg.STT.Name, fallbackConfig(m, "stt"))
		for _, e := range cfg.STT.Fallbacks {
			alt, err := reg.CreateSTT(e)
			if err != nil {
				return nil, fmt.Errorf("app: stt fallback %q: %w", e.Name, err)
			}
			fb.AddFallback(e.Name, alt)
		}
		p.STT = fb
	}

	if cfg.Lyrics.Name != "" {
		primary, err := reg.CreateLyrics(cfg.Lyrics)
		if err != nil {
			return nil, fmt.Errorf("app: lyrics %q: %w", cfg.Lyrics.Name, err)
		}
		fb := resilience.NewLyricsFallback(primary, cfg.Lyrics.Name, fallbackConfig(m, "lyrics"))
		for _, e := range cfg.Lyrics.Fallbacks {
			alt, err := reg.CreateLyrics(e)
			if err != nil {
				return nil, fmt.Errorf("app: lyrics fallback %q: %w", e.Name, err)
			}
			fb.AddFallback(e.Name, alt)
		}
		p.Lyrics = fb
		p.LyricsSource = cfg.Lyrics.Name
	}
	return p, nil
}

// fallbackConfig records every provider attempt of kind in m.
func fallbackConfig(m *observe.Metrics, kind string) resilience.FallbackConfig {
	return resilience.FallbackConfig{
		OnAttempt: func(ctx context.Context, at resilience.Attempt) {
			switch {
			case at.Err == nil:
				m.RecordProviderRequest(ctx, at.Provider, kind, "ok")
			case errors.Is(at.Err, resilience.ErrCircuitOpen):
				m.RecordProviderRequest(ctx, at.Provider, kind, "skipped")
			case errors.Is(at.Err, lyrics.ErrNotFound):
				m.RecordProviderRequest(ctx, at.Provider, kind, "not_found")
			default:
				m.RecordProviderRequest(ctx, at.Provider, kind, "error")
				m.RecordProviderError(ctx, at.Provider, kind)
			}
		},
	}
}
