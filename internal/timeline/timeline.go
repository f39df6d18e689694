// Package timeline synthesizes a phrase-level display timeline from plain
// transcript text.
//
// The timeline is a heuristic. Times are derived from word counts and fixed
// pause constants only; nothing is measured from the audio. Consumers that
// need audio-accurate timing must align the groups against real beat or
// onset data themselves.
//
// Text is split into [PhraseGroup] values at two kinds of boundary:
//
//   - directly after a sentence mark (".", "!" or "?") that follows a word
//     character, the mark staying with the preceding group;
//   - at a filler word ("oh", "so", "well", "uh", "ah" by default), matched
//     as a whole word regardless of case. The filler itself is dropped.
//
// Groups are trimmed and empty groups discarded. Each group lasts
// words * word duration; the next group starts after an additional pause,
// longer when the group had more than the long-phrase word limit. The
// resulting sequence never overlaps and never runs backwards.
package timeline

import (
	"regexp"
	"strings"
)

// Defaults used by [New].
const (
	DefaultWordDuration    = 0.12
	DefaultBasePause       = 0.25
	DefaultLongPhraseBonus = 0.20
	DefaultLongPhraseWords = 6
)

// DefaultFillers are the filler words treated as line-break markers.
var DefaultFillers = []string{"oh", "so", "well", "uh", "ah"}

// wordRE matches word tokens: runs of letters, marks, digits and underscore.
var wordRE = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// PhraseGroup is one display unit of the synthetic timeline. Start and End
// are seconds from the start of the text.
type PhraseGroup struct {
	Text  string   `json:"text"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Words []string `json:"words"`
}

// Duration returns End - Start.
func (g PhraseGroup) Duration() float64 { return g.End - g.Start }

// Option is a functional option for [New].
type Option func(*Synthesizer)

// WithWordDuration sets the seconds allotted per word. Negative values are
// ignored.
func WithWordDuration(d float64) Option {
	return func(s *Synthesizer) {
		if d >= 0 {
			s.wordDuration = d
		}
	}
}

// WithBasePause sets the pause inserted after every group. Negative values
// are ignored.
func WithBasePause(d float64) Option {
	return func(s *Synthesizer) {
		if d >= 0 {
			s.basePause = d
		}
	}
}

// WithLongPhraseBonus sets the extra pause after a long group. Negative
// values are ignored.
func WithLongPhraseBonus(d float64) Option {
	return func(s *Synthesizer) {
		if d >= 0 {
			s.longBonus = d
		}
	}
}

// WithLongPhraseWords sets the word count a group must exceed to earn the
// long-phrase bonus.
func WithLongPhraseWords(n int) Option {
	return func(s *Synthesizer) {
		if n >= 0 {
			s.longWords = n
		}
	}
}

// WithFillers replaces the filler word list. An empty list disables filler
// splitting.
func WithFillers(words ...string) Option {
	return func(s *Synthesizer) {
		s.fillers = make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				s.fillers[w] = struct{}{}
			}
		}
	}
}

// Synthesizer converts text into a [PhraseGroup] timeline. It is immutable
// after construction and safe for concurrent use.
type Synthesizer struct {
	wordDuration float64
	basePause    float64
	longBonus    float64
	longWords    int
	fillers      map[string]struct{}
}

// New returns a Synthesizer with the default constants, adjusted by opts.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		wordDuration: DefaultWordDuration,
		basePause:    DefaultBasePause,
		longBonus:    DefaultLongPhraseBonus,
		longWords:    DefaultLongPhraseWords,
	}
	WithFillers(DefaultFillers...)(s)
	for _, o := range opts {
		o(s)
	}
	return s
}

var defaultSynthesizer = New()

// Synthesize runs the default Synthesizer over text.
func Synthesize(text string) []PhraseGroup {
	return defaultSynthesizer.Synthesize(text)
}

// Synthesize splits text into phrase groups and assigns each a synthetic
// start and end time. The result is never nil.
func (s *Synthesizer) Synthesize(text string) []PhraseGroup {
	groups := s.Split(text)
	out := make([]PhraseGroup, 0, len(groups))
	now := 0.0
	for _, g := range groups {
		words := Words(g)
		dur := float64(len(words)) * s.wordDuration
		out = append(out, PhraseGroup{
			Text:  g,
			Start: now,
			End:   now + dur,
			Words: words,
		})
		pause := s.basePause
		if len(words) > s.longWords {
			pause += s.longBonus
		}
		now += dur + pause
	}
	return out
}

// Split returns the trimmed, non-empty phrase groups of text without timing.
func (s *Synthesizer) Split(text string) []string {
	var (
		groups []string
		from   int
	)
	emit := func(to int) {
		if g := strings.TrimSpace(text[from:to]); g != "" {
			groups = append(groups, g)
		}
	}
	for _, loc := range wordRE.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if _, ok := s.fillers[strings.ToLower(text[start:end])]; ok {
			emit(start)
			from = end
		}
		if end < len(text) && isSentenceMark(text[end]) {
			emit(end + 1)
			from = end + 1
		}
	}
	emit(len(text))
	return groups
}

// Words returns the word tokens of text in order. The result is never nil.
func Words(text string) []string {
	words := wordRE.FindAllString(text, -1)
	if words == nil {
		return []string{}
	}
	return words
}

func isSentenceMark(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
