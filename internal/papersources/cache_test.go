package papersources

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/literature-search-service/internal/domain"
)

func newTestCache(ttl time.Duration, clock *time.Time) *Cache {
	c := NewCache(ttl)
	c.now = func() time.Time { return *clock }
	return c
}

func TestCacheKey(t *testing.T) {
	p := newMockProvider(domain.ProviderTypeCrossref, true)

	a := CacheKey(p, Query{Text: "glaucoma", Limit: 10})
	b := CacheKey(p, Query{Text: "glaucoma", Limit: 10})
	c := CacheKey(p, Query{Text: "glaucoma", Limit: 20})

	assert.Equal(t, "crossref|limit=10&q=glaucoma", a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	other := newMockProvider(domain.ProviderTypePubMed, true)
	assert.NotEqual(t, a, CacheKey(other, Query{Text: "glaucoma", Limit: 10}))
}

func TestCache_GetSet(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newTestCache(time.Hour, &clock)

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	records := []*domain.UnifiedSource{{ID: "pubmed-1", Title: "A", Authors: []string{"X"}, QualityScore: 85}}
	cache.Set("k", records)

	// Mutating the stored input must not leak into the cache.
	records[0].Title = "mutated"
	records[0].Authors[0] = "Y"

	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "X", got[0].Authors[0])
	assert.Equal(t, 85.0, got[0].QualityScore)

	// Mutating a read result must not leak either.
	got[0].Title = "changed"
	again, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "A", again[0].Title)
}

func TestCache_EmptyResultIsCached(t *testing.T) {
	clock := time.Now()
	cache := newTestCache(time.Hour, &clock)

	cache.Set("k", nil)
	got, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestCache_Expiry(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newTestCache(24*time.Hour, &clock)

	cache.Set("k", []*domain.UnifiedSource{{ID: "a"}})

	clock = clock.Add(23 * time.Hour)
	_, ok := cache.Get("k")
	assert.True(t, ok)

	clock = clock.Add(time.Hour)
	assert.Equal(t, 1, cache.Len(), "expired entries are only removed on read")

	_, ok = cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(0)
	assert.False(t, cache.Enabled())

	cache.Set("k", []*domain.UnifiedSource{{ID: "a"}})
	_, ok := cache.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
	nilCache.Set("k", nil)
	nilCache.Clear()
	_, ok = nilCache.Get("k")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(time.Hour)
	cache.Set("a", nil)
	cache.Set("b", nil)
	require.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(time.Hour)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			cache.Set(fmt.Sprintf("k%d", i%5), []*domain.UnifiedSource{{ID: fmt.Sprint(i)}})
		}(i)
		go func(i int) {
			defer wg.Done()
			if got, ok := cache.Get(fmt.Sprintf("k%d", i%5)); ok {
				got[0].Title = "local"
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 5)
}
