package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/lyricsync/internal/app"
	"github.com/MrWong99/lyricsync/internal/timeline"
	"github.com/MrWong99/lyricsync/internal/transcript"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

// segment is the tool-facing input shape of [stt.Segment]. Only text is
// required; the other verbose_json fields are carried through untouched.
type segment struct {
	ID               int     `json:"id,omitempty" jsonschema:"segment id"`
	Seek             int     `json:"seek,omitempty" jsonschema:"decoder seek offset"`
	Start            float64 `json:"start,omitempty" jsonschema:"start time in seconds"`
	End              float64 `json:"end,omitempty" jsonschema:"end time in seconds"`
	Text             string  `json:"text" jsonschema:"transcribed text"`
	Tokens           []int   `json:"tokens,omitempty" jsonschema:"decoder token ids"`
	Temperature      float64 `json:"temperature,omitempty" jsonschema:"sampling temperature"`
	AvgLogprob       float64 `json:"avg_logprob,omitempty" jsonschema:"average token log probability"`
	CompressionRatio float64 `json:"compression_ratio,omitempty" jsonschema:"text compression ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob,omitempty" jsonschema:"probability the segment is silence"`
}

func (s segment) toSTT() stt.Segment {
	return stt.Segment{
		ID:               s.ID,
		Seek:             s.Seek,
		Start:            s.Start,
		End:              s.End,
		Text:             s.Text,
		Tokens:           s.Tokens,
		Temperature:      s.Temperature,
		AvgLogprob:       s.AvgLogprob,
		CompressionRatio: s.CompressionRatio,
		NoSpeechProb:     s.NoSpeechProb,
	}
}

// alignedSegment is the output shape. Every field is always present so an
// id of 0 survives.
type alignedSegment struct {
	ID               int     `json:"id"`
	Seek             int     `json:"seek"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	Text             string  `json:"text"`
	Tokens           []int   `json:"tokens"`
	Temperature      float64 `json:"temperature"`
	AvgLogprob       float64 `json:"avg_logprob"`
	CompressionRatio float64 `json:"compression_ratio"`
	NoSpeechProb     float64 `json:"no_speech_prob"`
}

func fromSTT(s stt.Segment) alignedSegment {
	tokens := s.Tokens
	if tokens == nil {
		tokens = []int{}
	}
	return alignedSegment{
		ID:               s.ID,
		Seek:             s.Seek,
		Start:            s.Start,
		End:              s.End,
		Text:             s.Text,
		Tokens:           tokens,
		Temperature:      s.Temperature,
		AvgLogprob:       s.AvgLogprob,
		CompressionRatio: s.CompressionRatio,
		NoSpeechProb:     s.NoSpeechProb,
	}
}

type alignInput struct {
	Segments []segment `json:"segments" jsonschema:"transcript segments in order"`
	Lyrics   string    `json:"lyrics,omitempty" jsonschema:"raw reference lyrics with one lyric per line"`
}

type alignOutput struct {
	Segments    []alignedSegment        `json:"segments"`
	Corrections []transcript.Correction `json:"corrections"`
	Method      string                  `json:"method"`
	Fallback    string                  `json:"fallback,omitempty"`
}

type timelineInput struct {
	Text string `json:"text" jsonschema:"plain transcript text"`
}

type timelineOutput struct {
	Groups []timeline.PhraseGroup `json:"groups"`
}

type runInput struct {
	ID string `json:"id" jsonschema:"run id returned by a processing request"`
}

type tools struct {
	app *app.App
}

func (t *tools) alignLyrics(ctx context.Context, _ *mcpsdk.CallToolRequest, in alignInput) (*mcpsdk.CallToolResult, alignOutput, error) {
	segs := make([]stt.Segment, len(in.Segments))
	for i, s := range in.Segments {
		segs[i] = s.toSTT()
	}
	res, err := t.app.Align(ctx, segs, in.Lyrics)
	if err != nil {
		return nil, alignOutput{}, fmt.Errorf("align_lyrics: %w", err)
	}
	out := alignOutput{
		Segments:    make([]alignedSegment, len(res.Segments)),
		Corrections: res.Corrections,
		Method:      res.Method,
	}
	for i, s := range res.Segments {
		out.Segments[i] = fromSTT(s)
	}
	if out.Corrections == nil {
		out.Corrections = []transcript.Correction{}
	}
	if res.Fallback != nil {
		out.Fallback = res.Fallback.Error()
	}
	return nil, out, nil
}

func (t *tools) synthesizeTimeline(ctx context.Context, _ *mcpsdk.CallToolRequest, in timelineInput) (*mcpsdk.CallToolResult, timelineOutput, error) {
	return nil, timelineOutput{Groups: t.app.Timeline(ctx, in.Text)}, nil
}

// getRun has no output schema: the stored documents are raw JSON.
func (t *tools) getRun(ctx context.Context, _ *mcpsdk.CallToolRequest, in runInput) (*mcpsdk.CallToolResult, any, error) {
	run, err := t.app.GetRun(ctx, in.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get_run: %w", err)
	}
	return nil, run, nil
}
