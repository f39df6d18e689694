package lyrics

import "strings"

// Reference is reference lyric text for one song, as obtained from a lyrics
// source. A nil *Reference means no reference is available.
type Reference struct {
	// Text is the raw, uncleaned lyric text.
	Text string `json:"text"`

	// Source names where the text came from (e.g., "genius", "file",
	// "inline"). Informational only.
	Source string `json:"source,omitempty"`
}

// NewReference returns a Reference for text, or nil when text is blank.
func NewReference(text, source string) *Reference {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &Reference{Text: text, Source: source}
}

// Chunks normalizes the reference with n and chunks the resulting lines at
// size. It returns the normalized lines alongside the chunks so callers can
// tell "nothing survived normalization" apart from "no chunks".
// A nil receiver yields no lines and no chunks.
func (r *Reference) Chunks(n *Normalizer, size int) (lines, chunks []string) {
	if r == nil {
		return nil, nil
	}
	if n == nil {
		n = defaultNormalizer
	}
	lines = n.Normalize(r.Text)
	if len(lines) == 0 {
		return lines, nil
	}
	return lines, Chunk(lines, size)
}
