// ABOUTME: TTL cache for transformed register records
// ABOUTME: Expired entries are indistinguishable from cold misses

package registre

import (
	"sync"
	"time"
)

// cacheEntry holds a stored record with its expiry window.
type cacheEntry struct {
	record   *Record
	storedAt time.Time
	ttl      time.Duration
}

// CacheMetrics tracks response cache counters.
type CacheMetrics struct {
	Size   int
	Hits   int64
	Misses int64
}

// Cache is a thread-safe TTL map from lookup key to transformed record.
// The TTL is fixed per entry at store time; lookups never extend it.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	hits   int64
	misses int64
}

// NewCache creates an empty response cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// CacheKey builds the composite cache key for a lookup.
func CacheKey(siren string, variant Variant) string {
	return siren + ":" + string(variant)
}

// Lookup returns the cached record for the key if it is within its TTL
// window. An expired entry behaves exactly like a miss.
func (c *Cache) Lookup(key string) (*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || time.Since(entry.storedAt) >= entry.ttl {
		if ok {
			// Expired entries are dropped on contact so Len stays honest
			delete(c.entries, key)
		}
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.record, true
}

// Store saves a record under the key with the given TTL. Storing an existing
// key replaces the prior entry and resets its TTL window.
func (c *Cache) Store(key string, record *Record, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		record:   record,
		storedAt: time.Now(),
		ttl:      ttl,
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheMetrics{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
