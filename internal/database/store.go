// Package database persists game records in Postgres. Records are stored as
// JSONB: the engine state already round-trips through JSON, so the schema
// stays a single table.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pfcuttle/cuttle/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
    id         UUID PRIMARY KEY,
    status     TEXT NOT NULL,
    record     JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS games_status_idx ON games (status);
`

// Store implements game.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// LoadGame fetches and decodes one record. A row that does not decode is an
// error distinct from game.ErrGameNotFound; the caller poisons the id.
func (s *Store) LoadGame(ctx context.Context, id uuid.UUID) (*game.GameRecord, error) {
	var rec game.GameRecord
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM games WHERE id = $1`, id,
	).Scan(&rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return &rec, nil
}

// SaveGame upserts a record. Saves are issued asynchronously per session, so
// the update is guarded by updated_at: a stale snapshot never overwrites a
// newer one.
func (s *Store) SaveGame(ctx context.Context, id uuid.UUID, rec *game.GameRecord) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO games (id, status, record, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status, record = EXCLUDED.record, updated_at = EXCLUDED.updated_at
WHERE games.updated_at <= EXCLUDED.updated_at`,
		id, string(rec.Status), rec, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save game %s: %w", id, err)
	}
	return nil
}
