// Package sqlite is the SQLite [store.Store] backend for single-host
// installs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/MrWong99/lyricsync/internal/store"
)

var _ store.Store = (*Store)(nil)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    created_at  TEXT NOT NULL,
    title       TEXT NOT NULL DEFAULT '',
    artist      TEXT NOT NULL DEFAULT '',
    source      TEXT NOT NULL DEFAULT '',
    method      TEXT NOT NULL DEFAULT '',
    fallback    TEXT NOT NULL DEFAULT '',
    segments    TEXT NOT NULL,
    corrections TEXT NOT NULL,
    timeline    TEXT NOT NULL
);
`

// Store keeps runs in a SQLite database file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (creating if needed) the database at dsn and ensures the
// runs table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: create table: %w", err)
	}
	slog.Debug("sqlite store ready", "dsn", dsn)
	return &Store{db: db, now: time.Now}, nil
}

// SaveRun implements [store.Store].
func (s *Store) SaveRun(ctx context.Context, run store.Run) (string, error) {
	store.Prepare(&run, s.now())
	const q = `
		INSERT INTO runs
		    (id, created_at, title, artist, source, method, fallback, segments, corrections, timeline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		run.ID,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Title,
		run.Artist,
		run.Source,
		run.Method,
		run.Fallback,
		string(run.Segments),
		string(run.Corrections),
		string(run.Timeline),
	)
	if err != nil {
		return "", fmt.Errorf("sqlite store: save run: %w", err)
	}
	return run.ID, nil
}

// GetRun implements [store.Store].
func (s *Store) GetRun(ctx context.Context, id string) (*store.Run, error) {
	const q = `
		SELECT id, created_at, title, artist, source, method, fallback, segments, corrections, timeline
		FROM   runs
		WHERE  id = ?`

	var (
		run                                      store.Run
		created, segments, corrections, timeline string
	)
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&run.ID,
		&created,
		&run.Title,
		&run.Artist,
		&run.Source,
		&run.Method,
		&run.Fallback,
		&segments,
		&corrections,
		&timeline,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite store: get run %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get run: %w", err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("sqlite store: get run: created_at: %w", err)
	}
	run.Segments = []byte(segments)
	run.Corrections = []byte(corrections)
	run.Timeline = []byte(timeline)
	return &run, nil
}

// Ping implements [store.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements [store.Store].
func (s *Store) Close() error {
	return s.db.Close()
}
