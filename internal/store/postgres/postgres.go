// Package postgres is the PostgreSQL [store.Store] backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/lyricsync/internal/store"
)

var _ store.Store = (*Store)(nil)

const ddlRuns = `
CREATE TABLE IF NOT EXISTS lyricsync_runs (
    id          TEXT         PRIMARY KEY,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    title       TEXT         NOT NULL DEFAULT '',
    artist      TEXT         NOT NULL DEFAULT '',
    source      TEXT         NOT NULL DEFAULT '',
    method      TEXT         NOT NULL DEFAULT '',
    fallback    TEXT         NOT NULL DEFAULT '',
    segments    JSONB        NOT NULL,
    corrections JSONB        NOT NULL,
    timeline    JSONB        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lyricsync_runs_created_at
    ON lyricsync_runs (created_at DESC);
`

// Migrate creates the runs table. It is idempotent and safe to call on every
// start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlRuns); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Store keeps runs in a single PostgreSQL table.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore connects to dsn, verifies the connection and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// SaveRun implements [store.Store].
func (s *Store) SaveRun(ctx context.Context, run store.Run) (string, error) {
	store.Prepare(&run, s.now())
	const q = `
		INSERT INTO lyricsync_runs
		    (id, created_at, title, artist, source, method, fallback, segments, corrections, timeline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10::jsonb)`

	_, err := s.pool.Exec(ctx, q,
		run.ID,
		run.CreatedAt,
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
		return "", fmt.Errorf("postgres store: save run: %w", err)
	}
	return run.ID, nil
}

// GetRun implements [store.Store].
func (s *Store) GetRun(ctx context.Context, id string) (*store.Run, error) {
	const q = `
		SELECT id, created_at, title, artist, source, method, fallback,
		       segments::text, corrections::text, timeline::text
		FROM   lyricsync_runs
		WHERE  id = $1`

	var (
		run                             store.Run
		segments, corrections, timeline string
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&run.ID,
		&run.CreatedAt,
		&run.Title,
		&run.Artist,
		&run.Source,
		&run.Method,
		&run.Fallback,
		&segments,
		&corrections,
		&timeline,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres store: get run %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get run: %w", err)
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.Segments = []byte(segments)
	run.Corrections = []byte(corrections)
	run.Timeline = []byte(timeline)
	return &run, nil
}

// Ping implements [store.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements [store.Store].
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
