// ABOUTME: Bounded LRU cache mapping identity keys to live session objects
// ABOUTME: O(1) get/set with deterministic least-recently-used eviction

package session

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// entry stores the cached value and its position in the recency list.
type entry[V any] struct {
	key          string
	value        V
	lastAccessed time.Time
	element      *list.Element
}

// Metrics tracks cache usage counters.
type Metrics struct {
	Size      int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a thread-safe, fixed-capacity LRU cache keyed by identity.
// The least recently touched entry (by Get or Set) is evicted when a new key
// is inserted at capacity. Recency order is maintained in a doubly-linked
// list, least recent at the front, so eviction is O(1) and deterministic:
// entries touched at the same instant keep their touch order.
type Cache[V any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[V]
	order    *list.List
	capacity int
	logger   *slog.Logger

	hits      int64
	misses    int64
	evictions int64
}

// New creates an identity cache with the given fixed capacity.
// Capacities below 1 are treated as 1.
func New[V any](capacity int, logger *slog.Logger) *Cache[V] {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache[V]{
		entries:  make(map[string]*entry[V]),
		order:    list.New(),
		capacity: capacity,
		logger:   logger.With("component", "session-cache"),
	}
}

// Get returns the session for the key and refreshes its recency.
// A miss has no side effects beyond the miss counter.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	c.touchLocked(e)
	return e.value, true
}

// Set inserts or replaces the session for the key. Replacing an existing key
// never triggers eviction; inserting a new key at capacity evicts the least
// recently used entry first.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.touchLocked(e)
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}

	e := &entry[V]{
		key:          key,
		value:        value,
		lastAccessed: time.Now(),
	}
	e.element = c.order.PushBack(e)
	c.entries[key] = e
}

// Has reports whether a live session exists for the key without refreshing
// its recency.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len returns the current number of cached sessions.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the fixed capacity set at construction.
func (c *Cache[V]) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Metrics{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// touchLocked marks an entry as most recently used. Must be called with mu held.
func (c *Cache[V]) touchLocked(e *entry[V]) {
	e.lastAccessed = time.Now()
	c.order.MoveToBack(e.element)
}

// evictOldestLocked removes the least recently used entry. Must be called
// with mu held. Eviction is housekeeping, not an error: it is logged and
// never fails or blocks the caller.
func (c *Cache[V]) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}

	e, _ := front.Value.(*entry[V])
	c.order.Remove(front)
	delete(c.entries, e.key)
	c.evictions++

	c.logger.Info("session evicted",
		"identity", e.key,
		"size", len(c.entries),
	)
}
