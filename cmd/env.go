package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/siterisk/internal/cache"
	"github.com/sells-group/siterisk/internal/config"
	"github.com/sells-group/siterisk/internal/fetcher"
	"github.com/sells-group/siterisk/internal/pipeline"
	"github.com/sells-group/siterisk/internal/reconcile"
	"github.com/sells-group/siterisk/internal/region"
	"github.com/sells-group/siterisk/internal/schema"
	"github.com/sells-group/siterisk/internal/source"
)

// reportEnv holds the processor, fetcher and optional cache needed by the
// process, export, sheets and serve commands.
type reportEnv struct {
	Processor *pipeline.Processor
	Fetcher   fetcher.Fetcher
	Cache     *cache.Cache // nil when cache.driver is "none"
	Runner    *cache.Runner
}

// Close releases resources held by the environment.
func (e *reportEnv) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// Source picks the workbook for a --file value, falling back to the
// configured default path.
func (e *reportEnv) Source(location string) source.Source {
	return source.Locate(location, cfg.Source.DefaultPath, e.Fetcher)
}

// initEnv builds the processor and cache from cfg. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*reportEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	proc, err := newProcessor(cfg)
	if err != nil {
		return nil, err
	}

	store, err := initCacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	env := &reportEnv{
		Processor: proc,
		Fetcher: fetcher.NewRouter(
			fetcher.HTTPOptions{
				UserAgent:  cfg.Fetch.UserAgent,
				Timeout:    cfg.Fetch.Timeout(),
				MaxRetries: cfg.Fetch.MaxRetries,
			},
			fetcher.FTPOptions{Timeout: cfg.Fetch.Timeout()},
		),
	}
	if store != nil {
		env.Cache = cache.New(store, cache.Options{
			TTL:           cfg.Cache.TTL(),
			DefaultRegion: proc.DefaultRegion(),
		})
	}
	env.Runner = &cache.Runner{Processor: proc, Cache: env.Cache, TTL: cfg.Cache.TTL()}

	zap.L().Debug("environment ready",
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Strings("regions", proc.Regions()),
	)
	return env, nil
}

func newProcessor(c *config.Config) (*pipeline.Processor, error) {
	profile, err := schema.LoadProfile(c.Source.SchemaFile)
	if err != nil {
		return nil, eris.Wrap(err, "load schema profile")
	}

	return pipeline.New(pipeline.Options{
		IncidentSheet: c.Source.IncidentSheet,
		Regions:       c.Source.Regions,
		Resolver:      region.NewResolver(c.Source.RegistryTemplate, c.Source.RegistryPrefix, c.Source.DefaultRegion),
		Profile:       profile,
		Engine: reconcile.NewEngine(
			reconcile.NewNormalizer(c.Source.Regions),
			reconcile.NewClassifier(c.Classify.Tokens),
		),
	}), nil
}

// initCacheStore opens the configured cache backend. A nil store with a nil
// error means caching is disabled.
func initCacheStore(ctx context.Context, c config.CacheConfig) (cache.Store, error) {
	switch c.Driver {
	case "none":
		return nil, nil
	case "memory", "":
		st, err := cache.NewMemoryStore(c.MaxEntries)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		dsn := c.SQLitePath
		if dsn == "" {
			dsn = "siterisk-cache.db"
		}
		st, err := cache.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate cache store")
		}
		return st, nil
	case "postgres":
		st, err := cache.NewPostgres(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate cache store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported cache driver: %s", c.Driver)
	}
}
