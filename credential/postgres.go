package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSchema creates the table used by [PostgresStore].
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS session_credentials (
	name          TEXT PRIMARY KEY,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL DEFAULT '',
	present_at    TIMESTAMPTZ NOT NULL,
	expires_at    TIMESTAMPTZ NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore implements Store using PostgreSQL (session_credentials).
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresStore creates a Postgres-backed credential store. name selects the
// row, so several sessions can share one table.
func NewPostgresStore(pool *pgxpool.Pool, name string) *PostgresStore {
	if name == "" {
		name = "default"
	}
	return &PostgresStore{pool: pool, name: name}
}

// EnsureSchema applies [PostgresSchema].
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get loads the row for this store's name.
func (s *PostgresStore) Get(ctx context.Context) (*Record, error) {
	var (
		rec       Record
		expiresAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT access_token, refresh_token, present_at, expires_at
		FROM session_credentials
		WHERE name = $1
	`, s.name).Scan(
		&rec.AccessToken,
		&rec.RefreshToken,
		&rec.PresentAt,
		&expiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if expiresAt != nil {
		rec.ExpiresAt = *expiresAt
	}
	return &rec, nil
}

// Set upserts the row for this store's name.
func (s *PostgresStore) Set(ctx context.Context, rec Record) error {
	presentAt := rec.PresentAt
	if presentAt.IsZero() {
		presentAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO session_credentials (name, access_token, refresh_token, present_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			present_at = EXCLUDED.present_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, s.name, rec.AccessToken, rec.RefreshToken, presentAt, nullTime(rec.ExpiresAt))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Remove deletes the row; deleting an absent row is not an error.
func (s *PostgresStore) Remove(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM session_credentials WHERE name = $1`, s.name); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
