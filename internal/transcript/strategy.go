package transcript

import "github.com/MrWong99/lyricsync/internal/transcript/fuzzy"

// FullScan is the [MatchStrategy] that scores the text against every chunk
// and keeps the first chunk with the maximum score. It assumes nothing about
// where in the song the text occurs.
type FullScan struct {
	Scorer fuzzy.Scorer
}

var _ MatchStrategy = FullScan{}

// BestMatch implements MatchStrategy. Ties resolve to the earliest chunk.
func (f FullScan) BestMatch(text string, chunks []string) (int, float64) {
	best, bestScore := -1, -1.0
	for i, c := range chunks {
		if s := f.Scorer.Score(text, c); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, bestScore
}

// Name implements MatchStrategy.
func (f FullScan) Name() string { return f.Scorer.Name() }
