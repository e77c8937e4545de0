// Package cache memoizes pipeline results by workbook content and region.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/siterisk/internal/pipeline"
	"github.com/sells-group/siterisk/internal/source"
)

// DefaultTTL is how long a result stays fresh when no TTL is configured.
const DefaultTTL = time.Hour

// DefaultMaxTracked bounds how many source+region pairs are remembered for
// superseded-content eviction.
const DefaultMaxTracked = 4096

// Fingerprinter derives a content fingerprint from workbook bytes.
type Fingerprinter func(data []byte) string

// SHA256 is the default Fingerprinter: the hex SHA-256 of the content.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ComputeFunc produces a result from workbook content on a cache miss.
type ComputeFunc func(ctx context.Context, label string, data []byte, region string) (*pipeline.Result, error)

// Options configures a Cache. Zero values select defaults.
type Options struct {
	TTL         time.Duration
	Fingerprint Fingerprinter
	Now         func() time.Time

	// DefaultRegion replaces an empty region before keying, so an omitted
	// region and the region it resolves to share one entry.
	DefaultRegion string
	MaxTracked    int
}

// Cache fronts a Store with TTL freshness, miss collapsing and per-source
// invalidation. It is safe for concurrent use.
type Cache struct {
	store         Store
	ttl           time.Duration
	fingerprint   Fingerprinter
	now           func() time.Time
	defaultRegion string

	group singleflight.Group

	mu     sync.Mutex
	latest *simplelru.LRU[string, string] // label + region -> current key

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// New creates a Cache over store.
func New(store Store, opts Options) *Cache {
	maxTracked := opts.MaxTracked
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTracked
	}
	latest, _ := simplelru.NewLRU[string, string](maxTracked, nil) // size is positive

	c := &Cache{
		store:         store,
		ttl:           opts.TTL,
		fingerprint:   opts.Fingerprint,
		now:           opts.Now,
		defaultRegion: normalizeRegion(opts.DefaultRegion),
		latest:        latest,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.fingerprint == nil {
		c.fingerprint = SHA256
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Key builds the cache key for a fingerprint and region.
func Key(fingerprint, region string) string {
	return fingerprint + ":" + normalizeRegion(region)
}

func normalizeRegion(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}

// GetOrCompute returns the fresh stored result for src's content and region,
// or runs compute and stores its result. A ttl of zero uses the cache TTL.
// Compute errors are returned and never stored. Each caller receives its own
// copy of the result.
//
// Concurrent misses for one key share a single compute. The shared work does
// not inherit any caller's cancellation; a cancelled caller stops waiting and
// the others still get the result.
func (c *Cache) GetOrCompute(ctx context.Context, src source.Source, region string, ttl time.Duration, compute ComputeFunc) (*pipeline.Result, error) {
	label := src.Label()
	data, err := src.Open(ctx)
	if err != nil {
		if errors.Is(err, pipeline.ErrSourceNotFound) {
			return nil, err
		}
		return nil, &pipeline.PipelineError{Stage: pipeline.StageOpen, Err: err}
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	region = normalizeRegion(region)
	if region == "" {
		region = c.defaultRegion
	}
	fp := c.fingerprint(data)
	key := Key(fp, region)

	c.evictSuperseded(ctx, label, region, key)

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(shared, key, label, fp, region, data, ttl, compute)
	})

	var out singleflight.Result
	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "cache: wait for result")
	case out = <-ch:
	}
	if out.Err != nil {
		return nil, out.Err
	}
	if out.Shared {
		zap.L().Debug("cache: shared in-flight result", zap.String("fingerprint", fp))
	}

	var res pipeline.Result
	if err := json.Unmarshal(out.Val.([]byte), &res); err != nil {
		return nil, eris.Wrap(err, "cache: decode result")
	}
	return &res, nil
}

// load returns the encoded result for key, from the store when fresh and from
// compute otherwise.
func (c *Cache) load(ctx context.Context, key, label, fp, region string, data []byte, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	entry, err := c.store.Get(ctx, key)
	if err != nil {
		zap.L().Warn("cache: store get failed", zap.String("fingerprint", fp), zap.Error(err))
	}
	if entry != nil && !entry.Expired(c.now()) {
		c.hits.Add(1)
		zap.L().Debug("cache: hit", zap.String("fingerprint", fp), zap.String("region", region))
		return entry.Payload, nil
	}

	c.misses.Add(1)
	zap.L().Debug("cache: miss", zap.String("fingerprint", fp), zap.String("region", region))

	res, err := compute(ctx, label, data, region)
	if err != nil {
		return nil, err
	}
	res.Fingerprint = fp

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, eris.Wrap(err, "cache: encode result")
	}

	now := c.now()
	if err := c.store.Put(ctx, Entry{
		Key:         key,
		Label:       label,
		Region:      region,
		Fingerprint: fp,
		Payload:     payload,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}); err != nil {
		zap.L().Warn("cache: store put failed", zap.String("fingerprint", fp), zap.Error(err))
	}
	return payload, nil
}

// evictSuperseded drops results computed from earlier content of the same
// source and region as soon as new content is seen.
func (c *Cache) evictSuperseded(ctx context.Context, label, region, key string) {
	lk := label + "\x00" + region

	c.mu.Lock()
	prev, seen := c.latest.Get(lk)
	c.latest.Add(lk, key)
	c.mu.Unlock()

	if seen && prev == key {
		return
	}
	n, err := c.store.DeleteStale(ctx, label, region, key)
	if err != nil {
		zap.L().Warn("cache: evict superseded failed", zap.String("source", label), zap.Error(err))
		return
	}
	if n > 0 {
		zap.L().Info("cache: source content changed, evicted previous results",
			zap.String("source", label),
			zap.String("region", region),
			zap.Int("evicted", n),
		)
	}
}

// Invalidate removes every cached result for a source label.
func (c *Cache) Invalidate(ctx context.Context, label string) (int, error) {
	c.mu.Lock()
	for _, lk := range c.latest.Keys() {
		if strings.HasPrefix(lk, label+"\x00") {
			c.latest.Remove(lk)
		}
	}
	c.mu.Unlock()

	n, err := c.store.DeleteLabel(ctx, label)
	if err != nil {
		return 0, eris.Wrap(err, "cache: invalidate")
	}
	return n, nil
}

// Purge removes expired results from the store.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	n, err := c.store.Purge(ctx, c.now())
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge")
	}
	return n, nil
}

// Stats returns current cache statistics.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	n, err := c.store.Len(ctx)
	if err != nil {
		return Stats{}, eris.Wrap(err, "cache: stats")
	}

	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Entries: n, Hits: hits, Misses: misses, HitRate: rate}, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
