// Package mock provides an in-memory [store.Store] for tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/lyricsync/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps runs in a map.
type Store struct {
	mu   sync.Mutex
	runs map[string]store.Run

	// SaveErr, GetErr and PingErr, if non-nil, are returned by the matching
	// method.
	SaveErr error
	GetErr  error
	PingErr error

	// Closed reports whether Close was called.
	Closed bool
}

// SaveRun implements [store.Store].
func (s *Store) SaveRun(_ context.Context, run store.Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return "", s.SaveErr
	}
	store.Prepare(&run, time.Now())
	if s.runs == nil {
		s.runs = make(map[string]store.Run)
	}
	s.runs[run.ID] = run
	return run.ID, nil
}

// GetRun implements [store.Store].
func (s *Store) GetRun(_ context.Context, id string) (*store.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("mock store: %q: %w", id, store.ErrNotFound)
	}
	return &run, nil
}

// Ping implements [store.Store].
func (s *Store) Ping(context.Context) error { return s.PingErr }

// Close implements [store.Store].
func (s *Store) Close() error {
	s.mu.Lock()
	s.Closed = true
	s.mu.Unlock()
	return nil
}

// Len returns the number of saved runs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
