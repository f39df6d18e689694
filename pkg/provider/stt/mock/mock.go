// Package mock provides test doubles for the stt package interfaces.
//
// Use Provider to verify that the caller transcribes the expected audio and to
// feed a controlled Transcription back into the pipeline.
//
// Example:
//
//	p := &mock.Provider{Result: &stt.Transcription{Text: "hello"}}
//	tr, _ := p.Transcribe(ctx, stt.Request{AudioPath: "song.mp3"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Req is the Request passed to Transcribe.
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Transcribe. Each call receives a deep copy of the
	// segment slice so callers may mutate it freely.
	Result *stt.Transcription

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns a copy of Result, TranscribeErr.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (*stt.Transcription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Req: req})
	if p.TranscribeErr != nil {
		return nil, p.TranscribeErr
	}
	if p.Result == nil {
		return &stt.Transcription{Segments: []stt.Segment{}}, nil
	}
	cp := *p.Result
	cp.Segments = append([]stt.Segment(nil), p.Result.Segments...)
	return &cp, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.TranscribeCalls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
