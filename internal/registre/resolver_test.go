// ABOUTME: Tests for the cached lookup path
// ABOUTME: Validates cache population, hit short-circuiting, and error passthrough

package registre

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher counts calls and serves canned payloads or errors.
type fakeFetcher struct {
	calls int
	raw   *RawExtract
	err   error
}

func (f *fakeFetcher) FetchExtract(ctx context.Context, siren string, variant Variant) (*RawExtract, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func TestResolve_MissFetchesAndCaches(t *testing.T) {
	fetcher := &fakeFetcher{raw: fullExtract()}
	resolver, err := NewResolver(ResolverConfig{Fetcher: fetcher, TTL: time.Minute})
	require.NoError(t, err)

	rec, err := resolver.Resolve(t.Context(), "842019051", VariantCurrent)
	require.NoError(t, err)
	assert.Equal(t, "ATELIER BLEU SAS", rec.Name)
	assert.Equal(t, 1, fetcher.calls)

	// Second lookup is served from cache
	rec2, err := resolver.Resolve(t.Context(), "842019051", VariantCurrent)
	require.NoError(t, err)
	assert.Equal(t, rec, rec2)
	assert.Equal(t, 1, fetcher.calls, "cache hit must not reach upstream")
}

func TestResolve_VariantsCachedSeparately(t *testing.T) {
	fetcher := &fakeFetcher{raw: fullExtract()}
	resolver, err := NewResolver(ResolverConfig{Fetcher: fetcher, TTL: time.Minute})
	require.NoError(t, err)

	_, err = resolver.Resolve(t.Context(), "842019051", VariantCurrent)
	require.NoError(t, err)
	_, err = resolver.Resolve(t.Context(), "842019051", VariantFull)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.calls)
}

func TestResolve_ExpiredEntryRefetches(t *testing.T) {
	fetcher := &fakeFetcher{raw: fullExtract()}
	resolver, err := NewResolver(ResolverConfig{Fetcher: fetcher, TTL: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = resolver.Resolve(t.Context(), "842019051", VariantCurrent)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = resolver.Resolve(t.Context(), "842019051", VariantCurrent)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestResolve_ErrorNotCached(t *testing.T) {
	fetcher := &fakeFetcher{err: ErrNotFound}
	resolver, err := NewResolver(ResolverConfig{Fetcher: fetcher, TTL: time.Minute})
	require.NoError(t, err)

	_, err = resolver.Resolve(t.Context(), "000000000", VariantCurrent)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = resolver.Resolve(t.Context(), "000000000", VariantCurrent)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, fetcher.calls, "failures must not populate the cache")
}

func TestResolve_RejectsBadInputBeforeUpstream(t *testing.T) {
	fetcher := &fakeFetcher{raw: fullExtract()}
	resolver, err := NewResolver(ResolverConfig{Fetcher: fetcher, TTL: time.Minute})
	require.NoError(t, err)

	_, err = resolver.Resolve(t.Context(), "", VariantCurrent)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = resolver.Resolve(t.Context(), "842019051", Variant("weekly"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, fetcher.calls)
}

func TestNewResolver_RequiresFetcher(t *testing.T) {
	_, err := NewResolver(ResolverConfig{})
	assert.Error(t, err)
}
