package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore shares cache entries between several API instances.
type PostgresStore struct {
	pool pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: p}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS result_cache (
	id          UUID PRIMARY KEY,
	cache_key   TEXT NOT NULL UNIQUE,
	label       TEXT NOT NULL,
	region      TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	payload     BYTEA NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_result_cache_label ON result_cache(label, region);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at);
`

// Migrate creates the cache table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Get returns the entry for key, or nil.
func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, error) {
	var e Entry
	err := s.pool.QueryRow(ctx,
		`SELECT cache_key, label, region, fingerprint, payload, created_at, expires_at
		 FROM result_cache WHERE cache_key = $1`,
		key,
	).Scan(&e.Key, &e.Label, &e.Region, &e.Fingerprint, &e.Payload, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cache entry")
	}
	return &e, nil
}

// Put inserts or replaces the entry for e.Key.
func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO result_cache (id, cache_key, label, region, fingerprint, payload, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (cache_key) DO UPDATE SET
			label = EXCLUDED.label,
			region = EXCLUDED.region,
			fingerprint = EXCLUDED.fingerprint,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`,
		uuid.New().String(), e.Key, e.Label, e.Region, e.Fingerprint, e.Payload, e.CreatedAt, e.ExpiresAt,
	)
	return eris.Wrap(err, "postgres: put cache entry")
}

// Delete removes key.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM result_cache WHERE cache_key = $1`, key)
	return eris.Wrap(err, "postgres: delete cache entry")
}

// DeleteStale removes label/region entries other than keep.
func (s *PostgresStore) DeleteStale(ctx context.Context, label, region, keep string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM result_cache WHERE label = $1 AND region = $2 AND cache_key <> $3`,
		label, region, keep,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete stale entries")
	}
	return int(tag.RowsAffected()), nil
}

// DeleteLabel removes every entry for label.
func (s *PostgresStore) DeleteLabel(ctx context.Context, label string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM result_cache WHERE label = $1`, label)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete label entries")
	}
	return int(tag.RowsAffected()), nil
}

// Purge removes entries expired at now.
func (s *PostgresStore) Purge(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM result_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge expired entries")
	}
	return int(tag.RowsAffected()), nil
}

// Len returns the number of stored entries.
func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM result_cache`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count cache entries")
}
