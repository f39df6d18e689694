// Package lyrics turns raw, scraped reference lyric text into the units the
// aligner compares against: cleaned lines, then fixed-size chunks.
//
// Everything in this package is pure and safe for concurrent use.
package lyrics

import (
	"strings"
	"unicode"
)

// DefaultBoilerplate lists the case-insensitive substrings that mark a line
// as lyric-site boilerplate rather than lyric text.
var DefaultBoilerplate = []string{"contributor", "embed", "you might also like", "lyrics"}

// Normalizer cleans raw lyric text into an ordered sequence of lines.
// The zero value is not usable; construct with [NewNormalizer].
type Normalizer struct {
	boilerplate []string
	minWords    int
}

// NormalizerOption is a functional option for NewNormalizer.
type NormalizerOption func(*Normalizer)

// WithBoilerplate adds substrings to the boilerplate list. Matching is
// case-insensitive.
func WithBoilerplate(words ...string) NormalizerOption {
	return func(n *Normalizer) {
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				n.boilerplate = append(n.boilerplate, w)
			}
		}
	}
}

// NewNormalizer returns a Normalizer using [DefaultBoilerplate] plus any
// additions from opts.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		boilerplate: append([]string(nil), DefaultBoilerplate...),
		minWords:    2,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

var defaultNormalizer = NewNormalizer()

// Normalize cleans raw with the default rules. See [Normalizer.Normalize].
func Normalize(raw string) []string { return defaultNormalizer.Normalize(raw) }

// NormalizeLines cleans already-split lines with the default rules.
func NormalizeLines(lines []string) []string { return defaultNormalizer.NormalizeLines(lines) }

// Normalize splits raw into physical lines and returns the ones that look
// like lyric text, trimmed and in their original order. A line is dropped
// when it is empty, starts with "[" or "(", contains a boilerplate
// substring, is made of digits only, or has fewer than two words.
// The result is never nil.
func (n *Normalizer) Normalize(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	return n.NormalizeLines(strings.Split(raw, "\n"))
}

// NormalizeLines applies the line filter to each element of lines. Kept
// lines are only trimmed: their bytes are otherwise those of the input, so a
// corrected segment carries the reference text exactly.
func (n *Normalizer) NormalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if n.keep(line) {
			out = append(out, line)
		}
	}
	return out
}

func (n *Normalizer) keep(line string) bool {
	if line == "" {
		return false
	}
	if line[0] == '[' || line[0] == '(' {
		return false
	}
	lower := strings.ToLower(line)
	for _, kw := range n.boilerplate {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	if allDigits(line) {
		return false
	}
	return len(strings.Fields(line)) >= n.minWords
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
