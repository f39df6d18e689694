// Package transcript defines the lyrics alignment pipeline that corrects
// speech-to-text segments against reference lyrics.
//
// Raw speech-to-text output of sung vocals is noisy: words are misheard,
// merged or dropped. When reference lyrics are available the [Aligner]
// compares each segment's text with fixed-size chunks of the reference and
// replaces the text with the best chunk when the similarity is high enough:
//
//  1. The reference is normalized into lyric lines and chunked
//     (see package lyrics).
//  2. Every segment is scored against every chunk by a [MatchStrategy]; the
//     first chunk with the maximum score wins.
//  3. The segment's text is replaced only if that score is strictly greater
//     than the threshold. All other segment fields are left untouched.
//
// Missing reference lyrics, an empty chunk set and segments without text are
// not errors: the affected segments pass through unchanged and the reason is
// recorded in the [Result]. Each [Correction] records the chunk and score
// that produced it, so callers can audit or selectively roll back changes.
//
// The pipeline does not track a reading position in the reference; every
// segment is matched against the full chunk set, so repeated lyric phrases
// may map to the same chunk for several segments.
//
// Implementations of all interfaces must be safe for concurrent use.
package transcript

import (
	"context"
	"errors"

	"github.com/MrWong99/lyricsync/internal/lyrics"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

// Fatal errors returned by [Aligner.Correct].
var (
	// ErrNoSegments is returned when the segment sequence itself is absent.
	ErrNoSegments = errors.New("transcript: no segment sequence")
)

// Soft errors. They are recorded in a [Result] and never returned.
var (
	// ErrMissingReference means no reference lyrics were supplied, or nothing
	// survived normalization. Alignment is bypassed.
	ErrMissingReference = errors.New("transcript: reference lyrics unavailable")

	// ErrEmptyChunkSet means the reference produced no chunks. It is handled
	// exactly like ErrMissingReference.
	ErrEmptyChunkSet = errors.New("transcript: empty chunk set")

	// ErrMalformedSegment means a segment has no text field and was not
	// scored.
	ErrMalformedSegment = errors.New("transcript: segment has no text")
)

// Outcome is the alignment decision for one segment.
type Outcome string

// Outcomes reported in [SegmentScore].
const (
	OutcomeReplaced Outcome = "replaced"
	OutcomeKept     Outcome = "kept"
	OutcomeSkipped  Outcome = "skipped"
)

// Correction captures a single segment-level substitution.
type Correction struct {
	// Index is the position of the segment in the input sequence.
	Index int `json:"index"`

	// SegmentID is the segment's id field.
	SegmentID int `json:"segment_id"`

	// Original is the text as produced by the STT provider.
	Original string `json:"original"`

	// Corrected is the chunk text that replaced it.
	Corrected string `json:"corrected"`

	// ChunkIndex is the position of the winning chunk in the chunk set.
	ChunkIndex int `json:"chunk_index"`

	// Score is the similarity in [0, 100] that justified the substitution.
	Score float64 `json:"score"`

	// Method names the scorer that produced Score (e.g., "token_sort").
	Method string `json:"method"`
}

// SegmentScore is the best match found for one segment, whether or not it
// led to a replacement.
type SegmentScore struct {
	Index      int     `json:"index"`
	SegmentID  int     `json:"segment_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Outcome    Outcome `json:"outcome"`
}

// SkippedSegment records a segment that could not be scored.
type SkippedSegment struct {
	Index     int   `json:"index"`
	SegmentID int   `json:"segment_id"`
	Err       error `json:"-"`
}

// Result is the output of an [Aligner.Correct] call.
type Result struct {
	// Segments is the input segment slice with text replaced where the
	// threshold was exceeded. It has the same length and order as the input.
	Segments []stt.Segment `json:"segments"`

	// Chunks is the chunk set the segments were compared against.
	Chunks []string `json:"chunks,omitempty"`

	// Corrections lists every replacement in segment order. An empty
	// (non-nil) slice means nothing was replaced.
	Corrections []Correction `json:"corrections"`

	// Scores has one entry per segment when alignment ran.
	Scores []SegmentScore `json:"scores,omitempty"`

	// Skipped lists segments without text.
	Skipped []SkippedSegment `json:"skipped,omitempty"`

	// Fallback is ErrMissingReference or ErrEmptyChunkSet when alignment was
	// bypassed, nil otherwise.
	Fallback error `json:"-"`

	// Method names the scorer used.
	Method string `json:"method"`
}

// Aligned reports whether alignment actually ran.
func (r *Result) Aligned() bool { return r.Fallback == nil }

// Aligner corrects transcription segments against reference lyrics.
type Aligner interface {
	// Correct aligns segments against ref and returns the result. ref may be
	// nil when no reference lyrics are available; segments are then returned
	// unchanged with Result.Fallback set.
	//
	// The text of segments is rewritten in place; Result.Segments is the same
	// slice. Only a nil segments slice or a cancelled ctx produce an error.
	Correct(ctx context.Context, segments []stt.Segment, ref *lyrics.Reference) (*Result, error)
}

// MatchStrategy selects the best chunk for a piece of text.
//
// Implementations must be deterministic: the same text and chunks always
// yield the same index and score.
type MatchStrategy interface {
	// BestMatch returns the index of the best chunk and its score in
	// [0, 100]. It returns (-1, 0) when chunks is empty.
	BestMatch(text string, chunks []string) (index int, score float64)

	// Name identifies the strategy's scorer in corrections and logs.
	Name() string
}
