package papersources

import (
	"sync"
	"time"

	"github.com/helixir/literature-search-service/internal/domain"
)

// DefaultCacheTTL is how long a provider response stays fresh.
const DefaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	records  []*domain.UnifiedSource
	storedAt time.Time
}

// Cache is an in-memory, process-lifetime store of provider responses keyed by
// provider type and resolved request parameters. Entries expire passively: an
// expired entry is removed by the read that finds it. Records are deep copied
// on the way in and out, so callers may mutate what they receive.
//
// A Cache with a non-positive TTL stores nothing. A nil *Cache is a valid,
// disabled cache.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// CacheKey builds the key for a provider request.
func CacheKey(p Provider, q Query) string {
	return string(p.Type()) + "|" + p.RequestParams(q).Encode()
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns a copy of the cached records for key, if present and fresh.
func (c *Cache) Get(key string) ([]*domain.UnifiedSource, bool) {
	if !c.Enabled() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return domain.CloneSources(entry.records), true
}

// Set stores a copy of records under key.
func (c *Cache) Set(key string, records []*domain.UnifiedSource) {
	if !c.Enabled() {
		return
	}

	stored := domain.CloneSources(records)
	if stored == nil {
		stored = []*domain.UnifiedSource{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{records: stored, storedAt: c.now()}
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
