package postcodesio

import (
	"context"
	"fmt"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
)

// CachedResolver wraps a Resolver with an in-memory LRU cache keyed by
// normalized postcode. Both found and not-found results are cached; entries
// only leave the cache through eviction.
type CachedResolver struct {
	inner   domain.Resolver
	cache   *lruCache[domain.LookupResult]
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.Resolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache[domain.LookupResult](maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) Lookup(ctx context.Context, postcode string) (domain.LookupResult, error) {
	pc, err := domain.NormalizePostcode(postcode)
	if err != nil {
		return domain.LookupResult{}, err
	}
	if result, ok := c.cache.get(pc); ok {
		c.metrics.LookupCache.WithLabelValues(methodLookup, "hit").Inc()
		return result, nil
	}
	c.metrics.LookupCache.WithLabelValues(methodLookup, "miss").Inc()

	result, err := c.inner.Lookup(ctx, pc)
	if err != nil {
		return result, err
	}
	c.store(pc, result)
	return result, nil
}

// BulkLookup answers cached postcodes locally and forwards only the misses.
func (c *CachedResolver) BulkLookup(ctx context.Context, postcodes []string) (map[string]domain.LookupResult, error) {
	if len(postcodes) > domain.MaxBulkLookup {
		return nil, fmt.Errorf("%w: %d postcodes (max %d)", domain.ErrBatchTooLarge, len(postcodes), domain.MaxBulkLookup)
	}
	normalized, err := domain.NormalizePostcodes(postcodes)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.LookupResult, len(normalized))
	var misses []string
	for _, pc := range normalized {
		if result, ok := c.cache.get(pc); ok {
			out[pc] = result
			continue
		}
		misses = append(misses, pc)
	}
	c.metrics.LookupCache.WithLabelValues(methodBulk, "hit").Add(float64(len(out)))
	c.metrics.LookupCache.WithLabelValues(methodBulk, "miss").Add(float64(len(misses)))
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.inner.BulkLookup(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, pc := range misses {
		result, ok := fetched[pc]
		if !ok {
			result = domain.NotFound(pc)
		}
		c.store(pc, result)
		out[pc] = result
	}
	return out, nil
}

// CheckReadiness delegates to the wrapped resolver when it supports readiness.
func (c *CachedResolver) CheckReadiness(ctx context.Context) error {
	if rc, ok := c.inner.(interface{ CheckReadiness(context.Context) error }); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

func (c *CachedResolver) store(pc string, result domain.LookupResult) {
	c.cache.put(pc, result)
	c.metrics.CacheEntries.Set(float64(c.cache.len()))
}
