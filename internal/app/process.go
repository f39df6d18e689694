package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	reflyrics "github.com/MrWong99/lyricsync/internal/lyrics"
	"github.com/MrWong99/lyricsync/internal/observe"
	"github.com/MrWong99/lyricsync/internal/store"
	"github.com/MrWong99/lyricsync/internal/timeline"
	"github.com/MrWong99/lyricsync/internal/transcript"
	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

var (
	// ErrNoInput is returned by Process when the request carries neither
	// segments nor an audio path.
	ErrNoInput = errors.New("app: request has no segments and no audio")

	// ErrNoSTT is returned when audio must be transcribed but no
	// transcription provider is configured.
	ErrNoSTT = errors.New("app: no transcription provider configured")
)

// Request is one pipeline job.
type Request struct {
	// AudioPath is transcribed when Segments is nil.
	AudioPath string
	Language  string

	// Segments is an existing transcription. Text optionally carries its full
	// transcript.
	Segments []stt.Segment
	Text     string

	// Lyrics is inline reference text. When empty, Title and Artist are
	// looked up with the lyrics provider.
	Lyrics string
	Title  string
	Artist string
}

// Response is the outcome of Process.
type Response struct {
	// Transcription holds the aligned segments.
	Transcription *stt.Transcription

	Corrections []transcript.Correction
	Scores      []transcript.SegmentScore
	Method      string

	// Source names where the reference lyrics came from, empty when there
	// were none.
	Source string

	// Fallback is non-nil when alignment was bypassed.
	Fallback error

	Timeline []timeline.PhraseGroup

	// RunID is set when the run was persisted.
	RunID string
}

// Document is the output file written by the CLI: the transcription with
// aligned segments plus the synthesized timeline.
type Document struct {
	Text            string                 `json:"text"`
	Language        string                 `json:"language,omitempty"`
	Duration        float64                `json:"duration,omitempty"`
	Segments        []stt.Segment          `json:"segments"`
	SmartTimestamps []timeline.PhraseGroup `json:"smart_timestamps"`
}

// Document returns the output document for r.
func (r *Response) Document() Document {
	return Document{
		Text:            r.Transcription.Text,
		Language:        r.Transcription.Language,
		Duration:        r.Transcription.Duration,
		Segments:        r.Transcription.Segments,
		SmartTimestamps: r.Timeline,
	}
}

// FallbackReason returns the fallback as a string, empty when alignment ran.
func (r *Response) FallbackReason() string {
	if r.Fallback == nil {
		return ""
	}
	return r.Fallback.Error()
}

// Process runs the full pipeline: transcribe when needed, resolve the
// reference lyrics, align, synthesize the timeline and persist the run.
// Missing lyrics never fail the request; they bypass alignment.
func (a *App) Process(ctx context.Context, req Request) (*Response, error) {
	ctx, span := observe.StartSpan(ctx, "app.Process", trace.WithAttributes(
		attribute.String("song.title", req.Title),
		attribute.String("song.artist", req.Artist),
	))
	defer span.End()

	tr, err := a.transcription(ctx, req)
	if err != nil {
		return nil, observe.Fail(span, err)
	}

	ref := a.resolveReference(ctx, req)
	res, err := a.correct(ctx, tr.Segments, ref)
	if err != nil {
		return nil, observe.Fail(span, err)
	}
	tr.Segments = res.Segments

	resp := &Response{
		Transcription: tr,
		Corrections:   res.Corrections,
		Scores:        res.Scores,
		Method:        res.Method,
		Fallback:      res.Fallback,
		Timeline:      a.Timeline(ctx, tr.FullText()),
	}
	if ref != nil {
		resp.Source = ref.Source
	}
	resp.RunID = a.persist(ctx, req, resp)
	span.SetAttributes(
		attribute.Int("align.corrections", len(resp.Corrections)),
		attribute.Bool("align.fallback", resp.Fallback != nil),
	)
	return resp, nil
}

// Align corrects segments against inline lyrics. Blank lyrics bypass
// alignment.
func (a *App) Align(ctx context.Context, segments []stt.Segment, lyricsText string) (*transcript.Result, error) {
	ctx, span := observe.StartSpan(ctx, "app.Align")
	defer span.End()
	return a.correct(ctx, segments, reflyrics.NewReference(lyricsText, "inline"))
}

// Timeline synthesizes phrase groups for text with the active settings.
func (a *App) Timeline(ctx context.Context, text string) []timeline.PhraseGroup {
	_, synth := a.current()
	groups := synth.Synthesize(text)
	a.metrics.RecordTimeline(ctx, len(groups))
	return groups
}

func (a *App) transcription(ctx context.Context, req Request) (*stt.Transcription, error) {
	if req.Segments != nil {
		return &stt.Transcription{Text: req.Text, Language: req.Language, Segments: req.Segments}, nil
	}
	if strings.TrimSpace(req.AudioPath) == "" {
		return nil, ErrNoInput
	}
	if a.providers.STT == nil {
		return nil, ErrNoSTT
	}

	ctx, span := observe.StartSpan(ctx, "stt.Transcribe")
	defer span.End()
	start := time.Now()
	tr, err := a.providers.STT.Transcribe(ctx, stt.Request{
		AudioPath: req.AudioPath,
		Language:  req.Language,
		Prompt:    lyrics.Query{Title: req.Title, Artist: req.Artist}.String(),
	})
	a.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, observe.Fail(span, fmt.Errorf("app: transcribe: %w", err))
	}
	if tr.Segments == nil {
		tr.Segments = []stt.Segment{}
	}
	observe.Logger(ctx).Info("transcription complete",
		"audio", req.AudioPath,
		"segments", len(tr.Segments),
		"language", tr.Language,
	)
	return tr, nil
}

// resolveReference returns inline lyrics, else the lyrics provider's answer
// for the song, else nil. Lookup failures are logged and treated as absent
// lyrics.
func (a *App) resolveReference(ctx context.Context, req Request) *reflyrics.Reference {
	if ref := reflyrics.NewReference(req.Lyrics, "inline"); ref != nil {
		return ref
	}
	q := lyrics.Query{Title: req.Title, Artist: req.Artist}
	if a.providers.Lyrics == nil || q.IsZero() {
		return nil
	}

	ctx, span := observe.StartSpan(ctx, "lyrics.Lookup")
	defer span.End()
	start := time.Now()
	text, err := a.providers.Lyrics.Lookup(ctx, q)
	a.metrics.LyricsDuration.Record(ctx, time.Since(start).Seconds())
	log := observe.Logger(ctx)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, lyrics.ErrNotFound) {
			log.Info("no reference lyrics found", "query", q.String())
		} else {
			log.Warn("lyrics lookup failed, continuing without reference", "query", q.String(), "err", err)
		}
		return nil
	}
	source := a.providers.LyricsSource
	if source == "" {
		source = "provider"
	}
	return reflyrics.NewReference(text, source)
}

func (a *App) correct(ctx context.Context, segments []stt.Segment, ref *reflyrics.Reference) (*transcript.Result, error) {
	pipeline, _ := a.current()
	start := time.Now()
	res, err := pipeline.Correct(ctx, segments, ref)
	a.metrics.RecordAlignDuration(ctx, time.Since(start))
	if err != nil {
		return nil, err
	}

	if res.Fallback != nil {
		reason := "missing_reference"
		if errors.Is(res.Fallback, transcript.ErrEmptyChunkSet) {
			reason = "empty_chunk_set"
		}
		a.metrics.RecordFallback(ctx, reason)
		return res, nil
	}
	for _, sc := range res.Scores {
		a.metrics.RecordSegment(ctx, res.Method, string(sc.Outcome), sc.Score, sc.Outcome != transcript.OutcomeSkipped)
	}
	return res, nil
}

// persist saves the run when a store is configured and returns its id. A
// failed save is logged; the caller still gets its result.
func (a *App) persist(ctx context.Context, req Request, resp *Response) string {
	if a.store == nil {
		return ""
	}
	run := store.Run{
		Title:    req.Title,
		Artist:   req.Artist,
		Source:   resp.Source,
		Method:   resp.Method,
		Fallback: resp.FallbackReason(),
	}
	var err error
	if run.Segments, err = json.Marshal(resp.Transcription.Segments); err == nil {
		if run.Corrections, err = json.Marshal(resp.Corrections); err == nil {
			run.Timeline, err = json.Marshal(resp.Timeline)
		}
	}
	if err != nil {
		observe.Logger(ctx).Error("encode run", "err", err)
		return ""
	}
	id, err := a.store.SaveRun(ctx, run)
	if err != nil {
		observe.Logger(ctx).Error("save run", "err", err)
		return ""
	}
	return id
}
