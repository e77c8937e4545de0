package cache

import (
	"context"
	"time"
)

// Entry is one stored pipeline result.
type Entry struct {
	Key         string
	Label       string
	Region      string
	Fingerprint string
	Payload     []byte // JSON-encoded pipeline.Result
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the entry is stale at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store persists cache entries. Get returns nil, nil on a miss and may return
// expired entries; freshness is decided by the Cache.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	// DeleteStale removes entries for label and region whose key differs from keep.
	DeleteStale(ctx context.Context, label, region, keep string) (int, error)
	// DeleteLabel removes every entry for label.
	DeleteLabel(ctx context.Context, label string) (int, error)
	// Purge removes entries that expired at or before now.
	Purge(ctx context.Context, now time.Time) (int, error)
	Len(ctx context.Context) (int, error)
	Close() error
}
