package cache

import (
	"context"
	"time"

	"github.com/sells-group/siterisk/internal/pipeline"
	"github.com/sells-group/siterisk/internal/source"
)

// Runner reconciles sources, going through the cache when one is configured.
type Runner struct {
	Processor *pipeline.Processor
	Cache     *Cache // nil disables caching
	TTL       time.Duration
}

// Run returns the result for src and region.
func (r *Runner) Run(ctx context.Context, src source.Source, region string) (*pipeline.Result, error) {
	if r.Cache == nil {
		return r.Processor.Process(ctx, src, region)
	}
	return r.Cache.GetOrCompute(ctx, src, region, r.TTL, r.Processor.ProcessBytes)
}
