package vision

import (
	"context"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/labddb/resistorlens/internal/observability/metrics"
	"github.com/labddb/resistorlens/internal/reading"
)

// CachedAnalyzer reuses successful readings of identical images and lets
// concurrent requests for the same image share one model call.
type CachedAnalyzer struct {
	next    Analyzer
	cache   *cache.Cache
	group   singleflight.Group
	metrics *metrics.VisionMetrics
}

// NewCachedAnalyzer wraps next with a cache whose entries live for ttl.
func NewCachedAnalyzer(next Analyzer, ttl time.Duration, m *metrics.VisionMetrics) *CachedAnalyzer {
	return &CachedAnalyzer{
		next:    next,
		cache:   cache.New(ttl, 2*ttl),
		metrics: m,
	}
}

// Analyze returns a cached reading or delegates to the wrapped analyzer.
// Errors are never cached.
func (c *CachedAnalyzer) Analyze(ctx context.Context, img Image) (reading.Result, error) {
	key := img.Digest()
	if v, ok := c.cache.Get(key); ok {
		c.metrics.RecordCache(true)
		return cloneResult(v.(reading.Result)), nil
	}
	c.metrics.RecordCache(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		result, err := c.next.Analyze(ctx, img)
		if err != nil {
			return nil, err
		}
		c.cache.SetDefault(key, result)
		return result, nil
	})
	if err != nil {
		return reading.Result{}, err
	}
	return cloneResult(v.(reading.Result)), nil
}

// Len reports the number of cached readings, including expired ones not yet evicted.
func (c *CachedAnalyzer) Len() int {
	return c.cache.ItemCount()
}

// Flush drops every cached reading.
func (c *CachedAnalyzer) Flush() {
	c.cache.Flush()
}

func cloneResult(r reading.Result) reading.Result {
	r.Bands = slices.Clone(r.Bands)
	return r
}
