package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS result_cache (
	id          TEXT PRIMARY KEY,
	cache_key   TEXT NOT NULL UNIQUE,
	label       TEXT NOT NULL,
	region      TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	payload     BLOB NOT NULL,
	created_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_result_cache_label ON result_cache(label, region);
CREATE INDEX IF NOT EXISTS idx_result_cache_expires_at ON result_cache(expires_at);
`

// Migrate creates the cache table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the entry for key, or nil.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT cache_key, label, region, fingerprint, payload, created_at, expires_at
		 FROM result_cache WHERE cache_key = ?`,
		key,
	)

	var e Entry
	var created, expires int64
	err := row.Scan(&e.Key, &e.Label, &e.Region, &e.Fingerprint, &e.Payload, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cache entry")
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	e.ExpiresAt = time.UnixMilli(expires).UTC()
	return &e, nil
}

// Put inserts or replaces the entry for e.Key.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO result_cache (id, cache_key, label, region, fingerprint, payload, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET
			label = excluded.label,
			region = excluded.region,
			fingerprint = excluded.fingerprint,
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		uuid.New().String(), e.Key, e.Label, e.Region, e.Fingerprint, e.Payload,
		e.CreatedAt.UnixMilli(), e.ExpiresAt.UnixMilli(),
	)
	return eris.Wrap(err, "sqlite: put cache entry")
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM result_cache WHERE cache_key = ?`, key)
	return eris.Wrap(err, "sqlite: delete cache entry")
}

// DeleteStale removes label/region entries other than keep.
func (s *SQLiteStore) DeleteStale(ctx context.Context, label, region, keep string) (int, error) {
	return s.exec(ctx, "sqlite: delete stale entries",
		`DELETE FROM result_cache WHERE label = ? AND region = ? AND cache_key <> ?`,
		label, region, keep,
	)
}

// DeleteLabel removes every entry for label.
func (s *SQLiteStore) DeleteLabel(ctx context.Context, label string) (int, error) {
	return s.exec(ctx, "sqlite: delete label entries",
		`DELETE FROM result_cache WHERE label = ?`, label)
}

// Purge removes entries expired at now.
func (s *SQLiteStore) Purge(ctx context.Context, now time.Time) (int, error) {
	return s.exec(ctx, "sqlite: purge expired entries",
		`DELETE FROM result_cache WHERE expires_at <= ?`, now.UnixMilli())
}

// Len returns the number of stored entries.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM result_cache`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count cache entries")
}

func (s *SQLiteStore) exec(ctx context.Context, msg, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, msg)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
