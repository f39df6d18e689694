// Package fuzzy implements the similarity scorers used to compare a
// transcription segment against reference lyric chunks.
//
// Every scorer is token-order insensitive: both inputs are split on
// whitespace, the tokens are sorted, and the sorted token strings are
// compared. Both inputs are NFC-normalized first, so composed and
// decomposed spellings of the same text score alike. Scores are in [0, 100].
//
// Three scorers are provided:
//
//   - [TokenSort] is the token-sort ratio: 200 * LCS(a, b) / (len(a) + len(b))
//     over runes, where LCS is the longest common subsequence. Two empty
//     strings score 100; exactly one empty string scores 0.
//   - [JaroWinkler] scores the sorted token strings with Jaro-Winkler
//     similarity scaled to 100.
//   - [Phonetic] replaces every token with its Double Metaphone code before
//     applying the token-sort ratio, so homophones ("frend", "friend") score
//     as equal.
//
// All scorers are read-only after construction and safe for concurrent use.
package fuzzy

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Scorer computes a similarity score in [0, 100] between two strings.
type Scorer interface {
	// Name identifies the scorer in logs, metrics and correction records.
	Name() string

	// Score returns the similarity of a and b. It must be deterministic.
	Score(a, b string) float64
}

// Scorer names accepted by [ByName].
const (
	NameTokenSort   = "token_sort"
	NameJaroWinkler = "jaro_winkler"
	NamePhonetic    = "phonetic"
)

// Option is a functional option shared by all scorers.
type Option func(*options)

type options struct {
	fold bool
}

// WithFold enables Unicode case folding of both inputs before scoring. By
// default comparison is case-sensitive.
func WithFold() Option {
	return func(o *options) {
		o.fold = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// compose NFC-normalizes s and folds it when requested.
func (o options) compose(s string) string {
	s = norm.NFC.String(s)
	if o.fold {
		// cases.Caser is stateful, so one is created per call.
		s = cases.Fold().String(s)
	}
	return s
}

// prepare returns the sorted token string of the composed s.
func (o options) prepare(s string) string {
	return SortTokens(o.compose(s))
}

// SortTokens splits s on whitespace, sorts the tokens and joins them with a
// single space.
func SortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Ratio is the normalized Indel similarity of a and b in [0, 100]:
// 200 * LCS(a, b) / (len(a) + len(b)), with lengths counted in runes.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	lcs := matchr.LongestCommonSubsequence(a, b)
	return 200 * float64(lcs) / float64(la+lb)
}

// ByName returns the scorer registered under name. An empty name selects
// [TokenSort].
func ByName(name string, opts ...Option) (Scorer, error) {
	switch name {
	case "", NameTokenSort:
		return NewTokenSort(opts...), nil
	case NameJaroWinkler:
		return NewJaroWinkler(opts...), nil
	case NamePhonetic:
		return NewPhonetic(opts...), nil
	default:
		return nil, fmt.Errorf("fuzzy: unknown scorer %q", name)
	}
}

// ---- TokenSort --------------------------------------------------------------

// TokenSort is the token-sort ratio scorer.
type TokenSort struct {
	opts options
}

var _ Scorer = (*TokenSort)(nil)

// NewTokenSort returns a token-sort ratio scorer.
func NewTokenSort(opts ...Option) *TokenSort {
	return &TokenSort{opts: buildOptions(opts)}
}

// Name implements Scorer.
func (*TokenSort) Name() string { return NameTokenSort }

// Score implements Scorer.
func (t *TokenSort) Score(a, b string) float64 {
	return Ratio(t.opts.prepare(a), t.opts.prepare(b))
}

// ---- JaroWinkler ------------------------------------------------------------

// JaroWinkler scores sorted token strings with Jaro-Winkler similarity.
type JaroWinkler struct {
	opts options
}

var _ Scorer = (*JaroWinkler)(nil)

// NewJaroWinkler returns a token-sorted Jaro-Winkler scorer.
func NewJaroWinkler(opts ...Option) *JaroWinkler {
	return &JaroWinkler{opts: buildOptions(opts)}
}

// Name implements Scorer.
func (*JaroWinkler) Name() string { return NameJaroWinkler }

// Score implements Scorer.
func (j *JaroWinkler) Score(a, b string) float64 {
	sa, sb := j.opts.prepare(a), j.opts.prepare(b)
	switch {
	case sa == "" && sb == "":
		return 100
	case sa == "" || sb == "":
		return 0
	}
	return 100 * matchr.JaroWinkler(sa, sb, false)
}

// ---- Phonetic ---------------------------------------------------------------

// Phonetic applies the token-sort ratio to Double Metaphone codes.
type Phonetic struct {
	opts options
}

var _ Scorer = (*Phonetic)(nil)

// NewPhonetic returns a phonetic token-sort scorer. Double Metaphone is
// case-insensitive, so [WithFold] only affects tokens without a code.
func NewPhonetic(opts ...Option) *Phonetic {
	return &Phonetic{opts: buildOptions(opts)}
}

// Name implements Scorer.
func (*Phonetic) Name() string { return NamePhonetic }

// Score implements Scorer.
func (p *Phonetic) Score(a, b string) float64 {
	return Ratio(p.encode(a), p.encode(b))
}

// encode replaces every token with its primary Double Metaphone code and
// returns the sorted code string. Tokens without a code (no letters the
// encoder understands) are kept verbatim so that they still contribute to
// the score.
func (p *Phonetic) encode(s string) string {
	tokens := strings.Fields(p.opts.compose(s))
	for i, t := range tokens {
		if code, _ := matchr.DoubleMetaphone(t); code != "" {
			tokens[i] = code
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
