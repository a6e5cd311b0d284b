// ABOUTME: Tests for the TTL response cache
// ABOUTME: Validates round-trip, expiry-as-miss, replacement, and concurrency

package registre

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RoundTrip(t *testing.T) {
	cache := NewCache()
	rec := &Record{Name: "ATELIER BLEU SAS", Siren: "842019051"}

	cache.Store(CacheKey("842019051", VariantCurrent), rec, time.Minute)

	got, ok := cache.Lookup(CacheKey("842019051", VariantCurrent))
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestCache_VariantsAreDistinctKeys(t *testing.T) {
	cache := NewCache()

	cache.Store(CacheKey("842019051", VariantCurrent), &Record{Name: "current"}, time.Minute)

	_, ok := cache.Lookup(CacheKey("842019051", VariantFull))
	assert.False(t, ok, "full extract must not be served from the current-extract entry")
}

func TestCache_ExpiredBehavesLikeMiss(t *testing.T) {
	cache := NewCache()

	cache.Store("k", &Record{Name: "x"}, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Lookup("k")
	assert.False(t, ok)

	// Indistinguishable from never-cached
	_, ok = cache.Lookup("never-stored")
	assert.False(t, ok)
}

func TestCache_NoSlidingExpiry(t *testing.T) {
	cache := NewCache()

	cache.Store("k", &Record{Name: "x"}, 40*time.Millisecond)

	// Lookups partway through the window must not extend it
	time.Sleep(25 * time.Millisecond)
	_, ok := cache.Lookup("k")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = cache.Lookup("k")
	assert.False(t, ok, "TTL window is fixed at store time")
}

func TestCache_StoreReplacesAndResetsWindow(t *testing.T) {
	cache := NewCache()

	cache.Store("k", &Record{Name: "old"}, 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	cache.Store("k", &Record{Name: "new"}, 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// Past the first window but within the reset one
	got, ok := cache.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, "new", got.Name)
}

func TestCache_Stats(t *testing.T) {
	cache := NewCache()

	cache.Store("k", &Record{}, time.Minute)
	cache.Lookup("k")
	cache.Lookup("missing")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%16)
				cache.Store(key, &Record{Siren: key}, time.Minute)
				cache.Lookup(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 16)
}
