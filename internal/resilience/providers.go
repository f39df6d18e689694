package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

// STTFallback is an [stt.Provider] that fails over across several
// transcription backends.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an STTFallback with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend.
func (f *STTFallback) AddFallback(name string, p stt.Provider) { f.group.AddFallback(name, p) }

// Names returns the backend names in try order.
func (f *STTFallback) Names() []string { return f.group.Names() }

// Transcribe runs req against the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcription, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, p stt.Provider) (*stt.Transcription, error) {
		return p.Transcribe(ctx, req)
	})
}

// LyricsFallback is a [lyrics.Provider] that asks several lyrics sources in
// turn. A source answering [lyrics.ErrNotFound] is healthy, so it moves on
// to the next source without counting against the breaker.
type LyricsFallback struct {
	group *FallbackGroup[lyrics.Provider]
}

var _ lyrics.Provider = (*LyricsFallback)(nil)

// NewLyricsFallback creates a LyricsFallback with primary as the preferred
// source.
func NewLyricsFallback(primary lyrics.Provider, primaryName string, cfg FallbackConfig) *LyricsFallback {
	isFailure := cfg.CircuitBreaker.IsFailure
	if isFailure == nil {
		isFailure = CountsAsFailure
	}
	cfg.CircuitBreaker.IsFailure = func(err error) bool {
		return !errors.Is(err, lyrics.ErrNotFound) && isFailure(err)
	}
	return &LyricsFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another source.
func (f *LyricsFallback) AddFallback(name string, p lyrics.Provider) { f.group.AddFallback(name, p) }

// Names returns the source names in try order.
func (f *LyricsFallback) Names() []string { return f.group.Names() }

// Lookup returns the first successful answer. When every source misses, the
// returned error matches both [ErrAllFailed] and [lyrics.ErrNotFound].
func (f *LyricsFallback) Lookup(ctx context.Context, q lyrics.Query) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, p lyrics.Provider) (string, error) {
		return p.Lookup(ctx, q)
	})
}
