// Package store persists alignment runs so that a result can be fetched
// again by id, for example by a karaoke front-end that polls for a finished
// job.
//
// Backends live in sub-packages: [postgres] for shared deployments and
// [sqlite] for single-host installs. Both store the segment, correction and
// timeline documents as opaque JSON.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by GetRun for an unknown id.
var ErrNotFound = errors.New("store: run not found")

// Run is one persisted pipeline result.
type Run struct {
	// ID is assigned by SaveRun when empty.
	ID string `json:"id"`

	// CreatedAt is set by SaveRun when zero.
	CreatedAt time.Time `json:"created_at"`

	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`

	// Source names where the reference lyrics came from, empty when there
	// were none.
	Source string `json:"source,omitempty"`

	// Method is the scorer name used for alignment.
	Method string `json:"method,omitempty"`

	// Fallback is the reason alignment was bypassed, empty when it ran.
	Fallback string `json:"fallback,omitempty"`

	Segments    json.RawMessage `json:"segments"`
	Corrections json.RawMessage `json:"corrections"`
	Timeline    json.RawMessage `json:"smart_timestamps"`
}

// Store persists runs. Implementations must be safe for concurrent use.
type Store interface {
	// SaveRun stores run and returns its id.
	SaveRun(ctx context.Context, run Run) (string, error)

	// GetRun returns the run with id or an error wrapping [ErrNotFound].
	GetRun(ctx context.Context, id string) (*Run, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Prepare fills in the id and creation time of run when they are unset and
// replaces nil JSON documents with JSON null. Backends call it from SaveRun.
func Prepare(run *Run, now time.Time) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.CreatedAt = run.CreatedAt.UTC()
	for _, doc := range []*json.RawMessage{&run.Segments, &run.Corrections, &run.Timeline} {
		if len(*doc) == 0 {
			*doc = json.RawMessage("null")
		}
	}
}

// ValidID reports whether id has the shape of an id produced by SaveRun.
// Handlers use it to answer 404 without a database round trip.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
