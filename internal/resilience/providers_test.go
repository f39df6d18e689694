package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
	lyricsmock "github.com/MrWong99/lyricsync/pkg/provider/lyrics/mock"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
	sttmock "github.com/MrWong99/lyricsync/pkg/provider/stt/mock"
)

func TestSTTFallback_Failover(t *testing.T) {
	t.Parallel()

	primary := &sttmock.Provider{TranscribeErr: errors.New("groq: 503")}
	secondary := &sttmock.Provider{Result: &stt.Transcription{Text: "hello", Segments: []stt.Segment{{ID: 0, Text: "hello"}}}}

	fb := NewSTTFallback(primary, "groq", FallbackConfig{})
	fb.AddFallback("whisper", secondary)

	req := stt.Request{AudioPath: "song.mp3", Language: "en"}
	tr, err := fb.Transcribe(context.Background(), req)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hello" {
		t.Errorf("Text = %q", tr.Text)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
	if got := secondary.TranscribeCalls[0].Req; got != req {
		t.Errorf("request = %+v, want %+v", got, req)
	}
	if names := fb.Names(); len(names) != 2 || names[1] != "whisper" {
		t.Errorf("Names = %v", names)
	}
}

func TestSTTFallback_AllFail(t *testing.T) {
	t.Parallel()

	fb := NewSTTFallback(&sttmock.Provider{TranscribeErr: errTest}, "openai", FallbackConfig{})
	fb.AddFallback("deepgram", &sttmock.Provider{TranscribeErr: errTest})

	if _, err := fb.Transcribe(context.Background(), stt.Request{AudioPath: "x.wav"}); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLyricsFallback_NotFoundMovesOn(t *testing.T) {
	t.Parallel()

	genius := &lyricsmock.Provider{LookupErr: lyrics.ErrNotFound}
	file := &lyricsmock.Provider{Text: "I walk alone"}

	fb := NewLyricsFallback(genius, "genius", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
	})
	fb.AddFallback("file", file)

	q := lyrics.Query{Title: "Boulevard", Artist: "Green Day"}
	for range 3 {
		got, err := fb.Lookup(context.Background(), q)
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if got != "I walk alone" {
			t.Errorf("Lookup = %q", got)
		}
	}
	if genius.CallCount() != 3 {
		t.Errorf("genius called %d times; a miss must not open its breaker", genius.CallCount())
	}
}

func TestLyricsFallback_AllMissIsNotFound(t *testing.T) {
	t.Parallel()

	fb := NewLyricsFallback(&lyricsmock.Provider{LookupErr: lyrics.ErrNotFound}, "genius", FallbackConfig{})
	fb.AddFallback("file", &lyricsmock.Provider{LookupErr: lyrics.ErrNotFound})

	_, err := fb.Lookup(context.Background(), lyrics.Query{Title: "x"})
	if !errors.Is(err, lyrics.ErrNotFound) || !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed and ErrNotFound", err)
	}
}

func TestLyricsFallback_OutageOpensBreaker(t *testing.T) {
	t.Parallel()

	genius := &lyricsmock.Provider{LookupErr: errors.New("genius: 500")}
	fb := NewLyricsFallback(genius, "genius", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1},
	})
	fb.AddFallback("file", &lyricsmock.Provider{Text: "x"})

	for range 3 {
		if _, err := fb.Lookup(context.Background(), lyrics.Query{Title: "x"}); err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}
	if genius.CallCount() != 1 {
		t.Errorf("genius called %d times, want 1", genius.CallCount())
	}
}
