// ABOUTME: Tests for the bounded LRU identity cache
// ABOUTME: Validates capacity, eviction order, recency refresh, and concurrency safety

package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMiss(t *testing.T) {
	cache := New[string](3, nil)

	_, ok := cache.Get("absent")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len(), "miss must not alter cache size")
}

func TestCache_SetAndGet(t *testing.T) {
	cache := New[string](3, nil)

	cache.Set("u1", "session-1")

	got, ok := cache.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "session-1", got)
	assert.True(t, cache.Has("u1"))
}

func TestCache_CapacityNeverExceeded(t *testing.T) {
	cache := New[int](5, nil)

	for i := 0; i < 50; i++ {
		cache.Set(fmt.Sprintf("u%d", i), i)
		assert.LessOrEqual(t, cache.Len(), 5)
	}
	assert.Equal(t, 5, cache.Len())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := New[int](3, nil)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)

	// Touch "a" so "b" becomes the oldest
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Set("d", 4)

	assert.False(t, cache.Has("b"), "least recently used entry should be evicted")
	assert.True(t, cache.Has("a"))
	assert.True(t, cache.Has("c"))
	assert.True(t, cache.Has("d"))
}

func TestCache_SetRefreshesRecency(t *testing.T) {
	cache := New[int](3, nil)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)

	// Overwrite "a"; "b" is now the oldest
	cache.Set("a", 10)
	cache.Set("d", 4)

	assert.False(t, cache.Has("b"))
	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, got)
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	cache := New[int](2, nil)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("a", 3)

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has("a"))
	assert.True(t, cache.Has("b"))
}

func TestCache_RepeatedGetNeverEvictsThatKey(t *testing.T) {
	cache := New[int](2, nil)

	cache.Set("a", 1)
	for i := 0; i < 10; i++ {
		_, ok := cache.Get("a")
		require.True(t, ok)
	}

	cache.Set("b", 2)
	cache.Set("c", 3)

	// "a" was touched most recently before the inserts; "b" goes first
	assert.True(t, cache.Has("a"))
	assert.False(t, cache.Has("b"))
}

func TestCache_EvictionIsDeterministic(t *testing.T) {
	// Entries inserted back-to-back keep insertion order for eviction,
	// regardless of timestamp resolution.
	cache := New[int](3, nil)

	cache.Set("first", 1)
	cache.Set("second", 2)
	cache.Set("third", 3)
	cache.Set("fourth", 4)

	assert.False(t, cache.Has("first"))
	assert.True(t, cache.Has("second"))
}

func TestCache_Stats(t *testing.T) {
	cache := New[int](2, nil)

	cache.Set("a", 1)
	cache.Get("a")
	cache.Get("absent")
	cache.Set("b", 2)
	cache.Set("c", 3) // evicts

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestCache_ConcurrentDistinctSets(t *testing.T) {
	const n = 64
	cache := New[int](n, nil)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cache.Set(fmt.Sprintf("u%d", i), i)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, cache.Len(), "no entries may be lost")
	for i := 0; i < n; i++ {
		got, ok := cache.Get(fmt.Sprintf("u%d", i))
		require.True(t, ok)
		assert.Equal(t, i, got)
	}
}

func TestCache_ConcurrentMixedAccess(t *testing.T) {
	cache := New[int](16, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("u%d", (i+j)%32)
				cache.Set(key, j)
				cache.Get(key)
				cache.Has(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 16)
}
