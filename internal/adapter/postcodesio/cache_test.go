package postcodesio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingResolver struct {
	mu          sync.Mutex
	lookupCalls int
	bulkCalls   [][]string
	known       map[string]domain.GeoCoordinate
	err         error
}

func newCountingResolver() *countingResolver {
	return &countingResolver{
		known: map[string]domain.GeoCoordinate{
			"BS1 4DJ":  {Lat: 51.4545, Lon: -2.5879},
			"SW1A 1AA": {Lat: 51.5010, Lon: -0.1415},
		},
	}
}

func (m *countingResolver) result(pc string) domain.LookupResult {
	coord, ok := m.known[pc]
	if !ok {
		return domain.NotFound(pc)
	}
	return domain.LookupResult{
		Query:    pc,
		Found:    true,
		Location: domain.PostcodeLocation{Postcode: pc, Coordinate: coord},
	}
}

func (m *countingResolver) Lookup(_ context.Context, postcode string) (domain.LookupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	if m.err != nil {
		return domain.LookupResult{}, m.err
	}
	return m.result(postcode), nil
}

func (m *countingResolver) BulkLookup(_ context.Context, postcodes []string) (map[string]domain.LookupResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls = append(m.bulkCalls, postcodes)
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]domain.LookupResult, len(postcodes))
	for _, pc := range postcodes {
		out[pc] = m.result(pc)
	}
	return out, nil
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

// --- CachedResolver tests ---

func TestCachedResolver_LookupCacheHit(t *testing.T) {
	inner := newCountingResolver()
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	r1, err := cached.Lookup(context.Background(), "bs14dj")
	require.NoError(t, err)
	assert.True(t, r1.Found)

	r2, err := cached.Lookup(context.Background(), "BS1 4DJ")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.lookupCalls, "spelling variants share one cache entry")
}

func TestCachedResolver_CachesNotFound(t *testing.T) {
	inner := newCountingResolver()
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	for range 3 {
		r, err := cached.Lookup(context.Background(), "ZZ9 9ZZ")
		require.NoError(t, err)
		assert.False(t, r.Found)
	}
	assert.Equal(t, 1, inner.lookupCalls)
}

func TestCachedResolver_ErrorsAreNotCached(t *testing.T) {
	inner := newCountingResolver()
	inner.err = &domain.NetworkError{Op: "lookup", Postcode: "BS1 4DJ", StatusCode: 503}
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Lookup(context.Background(), "BS1 4DJ")
	require.ErrorIs(t, err, domain.ErrNetwork)

	inner.err = nil
	r, err := cached.Lookup(context.Background(), "BS1 4DJ")
	require.NoError(t, err)
	assert.True(t, r.Found)
	assert.Equal(t, 2, inner.lookupCalls)
}

func TestCachedResolver_InvalidFormatSkipsInner(t *testing.T) {
	inner := newCountingResolver()
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Lookup(context.Background(), "INVALID")
	require.ErrorIs(t, err, domain.ErrInvalidFormat)
	assert.Zero(t, inner.lookupCalls)
}

func TestCachedResolver_BulkOnlyFetchesMisses(t *testing.T) {
	inner := newCountingResolver()
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Lookup(context.Background(), "BS1 4DJ")
	require.NoError(t, err)

	results, err := cached.BulkLookup(context.Background(), []string{"bs1 4dj", "sw1a1aa", "ZZ9 9ZZ"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results["BS1 4DJ"].Found)
	assert.True(t, results["SW1A 1AA"].Found)
	assert.False(t, results["ZZ9 9ZZ"].Found)

	require.Len(t, inner.bulkCalls, 1)
	assert.Equal(t, []string{"SW1A 1AA", "ZZ9 9ZZ"}, inner.bulkCalls[0])

	// Everything is cached now.
	_, err = cached.BulkLookup(context.Background(), []string{"BS1 4DJ", "SW1A 1AA", "ZZ9 9ZZ"})
	require.NoError(t, err)
	assert.Len(t, inner.bulkCalls, 1)
}

func TestCachedResolver_BulkTooLarge(t *testing.T) {
	inner := newCountingResolver()
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	postcodes := make([]string, domain.MaxBulkLookup+1)
	for i := range postcodes {
		postcodes[i] = "BS1 4DJ"
	}
	_, err := cached.BulkLookup(context.Background(), postcodes)
	require.ErrorIs(t, err, domain.ErrBatchTooLarge)
	assert.Empty(t, inner.bulkCalls)
}

func TestCachedResolver_BulkError(t *testing.T) {
	inner := newCountingResolver()
	inner.err = errors.New("boom")
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.BulkLookup(context.Background(), []string{"BS1 4DJ"})
	require.Error(t, err)
	assert.Zero(t, cached.cache.len())
}

func TestCachedResolver_EntriesGauge(t *testing.T) {
	inner := newCountingResolver()
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedResolver(inner, 2, metrics)

	for _, pc := range []string{"BS1 4DJ", "SW1A 1AA", "M1 1AE"} {
		_, err := cached.Lookup(context.Background(), pc)
		require.NoError(t, err)
	}
	assert.InDelta(t, 2, gaugeValue(t, metrics.CacheEntries), 0)
}

func TestCachedResolver_ConcurrentLookups(t *testing.T) {
	inner := newCountingResolver()
	cached := NewCachedResolver(inner, 5, observability.NewMetricsForTesting())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pc := fmt.Sprintf("M%d 1AE", i%10+1)
			_, err := cached.Lookup(context.Background(), pc)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, cached.cache.len(), 5)
}

// --- LRU cache unit tests ---

func found(pc string) domain.LookupResult {
	return domain.LookupResult{Query: pc, Found: true, Location: domain.PostcodeLocation{Postcode: pc}}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[domain.LookupResult](3)

	c.put("a", found("A"))
	c.put("b", found("B"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", result.Query)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[domain.LookupResult](2)

	c.put("a", found("A"))
	c.put("b", found("B"))
	c.put("c", found("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", result.Query)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", result.Query)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[domain.LookupResult](2)

	c.put("a", found("A"))
	c.put("b", found("B"))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", found("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[domain.LookupResult](2)

	c.put("a", domain.NotFound("A"))
	c.put("a", found("A"))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.True(t, result.Found)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_ZeroCapacityStoresNothing(t *testing.T) {
	c := newLRUCache[domain.LookupResult](0)

	c.put("a", found("A"))

	_, ok := c.get("a")
	assert.False(t, ok)
	assert.Zero(t, c.len())
}
