package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lyricsync/internal/lyrics"
	"github.com/MrWong99/lyricsync/internal/transcript/fuzzy"
	"github.com/MrWong99/lyricsync/pkg/provider/stt"
)

// DefaultThreshold is the similarity a best match must exceed (strictly) for
// a segment's text to be replaced.
const DefaultThreshold = 80.0

// PipelineOption is a functional option for configuring a [CorrectionPipeline].
type PipelineOption func(*CorrectionPipeline)

// WithThreshold sets the replacement threshold in [0, 100]. Default: 80.
func WithThreshold(threshold float64) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.threshold = threshold
	}
}

// WithScorer sets the similarity scorer used by the default full-scan
// strategy. Default: [fuzzy.TokenSort]. Ignored when [WithStrategy] is also
// given.
func WithScorer(s fuzzy.Scorer) PipelineOption {
	return func(p *CorrectionPipeline) {
		if s != nil {
			p.scorer = s
		}
	}
}

// WithStrategy replaces the match strategy.
func WithStrategy(s MatchStrategy) PipelineOption {
	return func(p *CorrectionPipeline) {
		if s != nil {
			p.strategy = s
		}
	}
}

// WithChunkSize sets the chunker threshold in characters. Default: 60.
func WithChunkSize(n int) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.chunkSize = n
	}
}

// WithNormalizer replaces the lyrics normalizer.
func WithNormalizer(n *lyrics.Normalizer) PipelineOption {
	return func(p *CorrectionPipeline) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// WithWorkers bounds the number of segments scored concurrently. Values
// below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) PipelineOption {
	return func(p *CorrectionPipeline) {
		p.workers = n
	}
}

// WithLogger sets the logger for per-segment decisions (Debug) and run
// summaries (Info). Default: slog.Default().
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *CorrectionPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// CorrectionPipeline is the threshold-gated lyrics alignment implementation
// of [Aligner].
//
// CorrectionPipeline is safe for concurrent use; it holds no per-call state.
type CorrectionPipeline struct {
	threshold  float64
	chunkSize  int
	workers    int
	scorer     fuzzy.Scorer
	strategy   MatchStrategy
	normalizer *lyrics.Normalizer
	log        *slog.Logger
}

// Ensure CorrectionPipeline satisfies the Aligner interface at compile time.
var _ Aligner = (*CorrectionPipeline)(nil)

// NewPipeline constructs a [CorrectionPipeline] with the supplied options.
// Defaults: threshold 80, chunk size 60, token-sort full scan, GOMAXPROCS
// workers.
func NewPipeline(opts ...PipelineOption) *CorrectionPipeline {
	p := &CorrectionPipeline{
		threshold:  DefaultThreshold,
		chunkSize:  lyrics.DefaultChunkSize,
		normalizer: lyrics.NewNormalizer(),
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.strategy == nil {
		if p.scorer == nil {
			p.scorer = fuzzy.NewTokenSort()
		}
		p.strategy = FullScan{Scorer: p.scorer}
	}
	if p.workers < 1 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	return p
}

// Threshold returns the configured replacement threshold.
func (p *CorrectionPipeline) Threshold() float64 { return p.threshold }

// Correct normalizes and chunks ref and aligns segments against the chunks.
//
// Flow:
//  1. A nil segments slice is rejected with [ErrNoSegments].
//  2. A nil ref, or one with no usable lyric lines, bypasses alignment with
//     Result.Fallback = [ErrMissingReference].
//  3. Otherwise the lines are chunked and passed to [CorrectionPipeline.Align].
func (p *CorrectionPipeline) Correct(ctx context.Context, segments []stt.Segment, ref *lyrics.Reference) (*Result, error) {
	if segments == nil {
		return nil, ErrNoSegments
	}
	lines, chunks := ref.Chunks(p.normalizer, p.chunkSize)
	if len(lines) == 0 {
		p.log.InfoContext(ctx, "transcript: alignment bypassed, no reference lyrics",
			"segments", len(segments))
		return p.passThrough(segments, ErrMissingReference), nil
	}
	return p.Align(ctx, segments, chunks)
}

// Align matches segments against a pre-built chunk set. An empty chunk set
// bypasses alignment with Result.Fallback = [ErrEmptyChunkSet].
//
// Segments are scored concurrently; replacements are applied afterwards in
// segment order, so the result does not depend on scheduling.
func (p *CorrectionPipeline) Align(ctx context.Context, segments []stt.Segment, chunks []string) (*Result, error) {
	if segments == nil {
		return nil, ErrNoSegments
	}
	if len(chunks) == 0 {
		p.log.InfoContext(ctx, "transcript: alignment bypassed, empty chunk set",
			"segments", len(segments))
		return p.passThrough(segments, ErrEmptyChunkSet), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("transcript: align: %w", err)
	}

	type match struct {
		chunk int
		score float64
	}
	matches := make([]match, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range segments {
		if !segments[i].HasText() {
			continue
		}
		text := segments[i].Text
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx, score := p.strategy.BestMatch(text, chunks)
			matches[i] = match{chunk: idx, score: score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("transcript: align: %w", err)
	}

	res := &Result{
		Segments:    segments,
		Chunks:      chunks,
		Corrections: []Correction{},
		Scores:      make([]SegmentScore, 0, len(segments)),
		Method:      p.strategy.Name(),
	}
	for i := range segments {
		seg := &segments[i]
		if !seg.HasText() {
			res.Skipped = append(res.Skipped, SkippedSegment{Index: i, SegmentID: seg.ID, Err: ErrMalformedSegment})
			res.Scores = append(res.Scores, SegmentScore{Index: i, SegmentID: seg.ID, ChunkIndex: -1, Outcome: OutcomeSkipped})
			p.log.DebugContext(ctx, "transcript: segment skipped", "index", i, "id", seg.ID, "err", ErrMalformedSegment)
			continue
		}

		m := matches[i]
		original := seg.Text
		sc := SegmentScore{Index: i, SegmentID: seg.ID, ChunkIndex: m.chunk, Score: m.score, Outcome: OutcomeKept}
		if m.chunk >= 0 && m.score > p.threshold {
			sc.Outcome = OutcomeReplaced
			res.Corrections = append(res.Corrections, Correction{
				Index:      i,
				SegmentID:  seg.ID,
				Original:   original,
				Corrected:  chunks[m.chunk],
				ChunkIndex: m.chunk,
				Score:      m.score,
				Method:     res.Method,
			})
			seg.Text = chunks[m.chunk]
		}
		res.Scores = append(res.Scores, sc)

		p.log.DebugContext(ctx, "transcript: segment scored",
			"index", i,
			"id", seg.ID,
			"original", strings.TrimSpace(original),
			"chunk", m.chunk,
			"score", m.score,
			"outcome", sc.Outcome,
		)
	}

	p.log.InfoContext(ctx, "transcript: alignment complete",
		"segments", len(segments),
		"chunks", len(chunks),
		"replaced", len(res.Corrections),
		"skipped", len(res.Skipped),
		"method", res.Method,
	)
	return res, nil
}

// passThrough builds a Result that leaves segments untouched.
func (p *CorrectionPipeline) passThrough(segments []stt.Segment, reason error) *Result {
	return &Result{
		Segments:    segments,
		Corrections: []Correction{},
		Fallback:    reason,
		Method:      p.strategy.Name(),
	}
}
