// Package mock provides test doubles for the lyrics package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
)

// Provider is a mock implementation of lyrics.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Lookup when LookupErr is nil.
	Text string

	// LookupErr, if non-nil, is returned as the error from Lookup.
	LookupErr error

	// Queries records every query passed to Lookup.
	Queries []lyrics.Query
}

// Lookup records the query and returns Text, LookupErr.
func (p *Provider) Lookup(_ context.Context, q lyrics.Query) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Queries = append(p.Queries, q)
	if p.LookupErr != nil {
		return "", p.LookupErr
	}
	return p.Text, nil
}

// CallCount returns the number of Lookup calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Queries)
}

// Ensure Provider implements lyrics.Provider at compile time.
var _ lyrics.Provider = (*Provider)(nil)
