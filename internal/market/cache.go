package market

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL mirrors the CACHE_EXPIRE_SECONDS default.
const DefaultCacheTTL = 300 * time.Second

// DefaultCacheMaxEntries is a defensive bound; the key space (symbol sets x
// eight timeframes) is naturally small.
const DefaultCacheMaxEntries = 256

type cacheEntry struct {
	createdAt time.Time
	series    map[string]Series
}

// Cache is a TTL store for resolved series batches, keyed by the exact
// (sorted symbol set, timeframe) pair. Entries only ever hold real provider
// data; fallback series are never written. Entries are replaced atomically
// under the lock, so concurrent readers see a complete prior entry or none.
type Cache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache creates a cache with the given TTL. A non-positive ttl falls back
// to the default.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:        ttl,
		maxEntries: DefaultCacheMaxEntries,
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
	}
}

// SetMaxEntries overrides the overflow bound. Non-positive disables it.
func (c *Cache) SetMaxEntries(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxEntries = n
}

// cacheKey builds the canonical key: lexicographically sorted symbols plus
// the tag. {AAPL} and {AAPL,MSFT} never share an entry.
func cacheKey(symbols []string, tag Timeframe) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return strings.Join(sorted, ",") + "|" + string(tag)
}

// Get returns the cached symbol-to-series map for the exact key, or false if
// the entry is absent or expired. Expired entries are evicted on the way out.
// Callers must treat the returned map as read-only.
func (c *Cache) Get(symbols []string, tag Timeframe) (map[string]Series, bool) {
	series, _, ok := c.Lookup(symbols, tag)
	return series, ok
}

// Lookup is Get plus the entry's creation time. Callers that fold a cached
// subset into a rewritten entry use it to keep the carried data on its
// original expiry clock.
func (c *Cache) Lookup(symbols []string, tag Timeframe) (map[string]Series, time.Time, bool) {
	key := cacheKey(symbols, tag)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	if c.now().Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		return nil, time.Time{}, false
	}
	return e.series, e.createdAt, true
}

// Put stores a new entry with createdAt = now, replacing any previous entry
// for the key. Empty maps are not stored. On overflow the oldest entries are
// evicted first.
func (c *Cache) Put(symbols []string, tag Timeframe, series map[string]Series) {
	c.PutAt(symbols, tag, series, c.now())
}

// PutAt stores an entry that expires ttl after createdAt. Backdating createdAt
// shortens the entry's remaining lifetime; data carried over from an older
// entry can never outlive its original TTL.
func (c *Cache) PutAt(symbols []string, tag Timeframe, series map[string]Series, createdAt time.Time) {
	if len(series) == 0 {
		return
	}
	key := cacheKey(symbols, tag)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{createdAt: createdAt, series: series}
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.entries, oldestKey)
	}
}

// SweepExpired drops every expired entry and reports how many were removed.
// Get already refuses expired entries, so the sweep only reclaims memory.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, counting expired ones not yet
// swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
