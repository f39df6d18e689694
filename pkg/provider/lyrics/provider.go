// Package lyrics defines the Provider interface for reference lyric sources.
//
// A lyrics provider turns a song query into raw, unstructured lyric text as
// published by the source. The text is not cleaned in any way; callers run it
// through the lyrics normalizer before using it as an alignment reference.
//
// Implementations must be safe for concurrent use.
package lyrics

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Lookup when the source has no lyrics for the
// query.
var ErrNotFound = errors.New("lyrics: not found")

// Query identifies a song.
type Query struct {
	Title  string
	Artist string
}

// String returns "title artist" with surrounding whitespace removed, the
// form used as a free-text search term.
func (q Query) String() string {
	return strings.TrimSpace(strings.TrimSpace(q.Title) + " " + strings.TrimSpace(q.Artist))
}

// IsZero reports whether the query carries neither title nor artist.
func (q Query) IsZero() bool { return q.String() == "" }

// Provider is the abstraction over any lyrics source.
type Provider interface {
	// Lookup returns the raw lyric text for q. Returns [ErrNotFound] (possibly
	// wrapped) when the source has no match.
	Lookup(ctx context.Context, q Query) (string, error)
}
