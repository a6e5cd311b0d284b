// ABOUTME: Cached lookup path combining the TTL cache, register client, and transform
// ABOUTME: Cache miss fetches upstream, transforms, and stores before returning

package registre

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Fetcher is the upstream capability the resolver consumes.
type Fetcher interface {
	FetchExtract(ctx context.Context, siren string, variant Variant) (*RawExtract, error)
}

// ResolverConfig holds configuration for the resolver.
type ResolverConfig struct {
	Fetcher Fetcher
	// TTL is the lifetime of cached records (default one hour).
	TTL    time.Duration
	Logger *slog.Logger
}

// Resolver answers lookups from the response cache, falling back to the
// register on a miss. Transformed records are cached; raw payloads are not.
type Resolver struct {
	fetcher Fetcher
	cache   *Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewResolver creates a resolver with its own response cache.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		fetcher: cfg.Fetcher,
		cache:   NewCache(),
		ttl:     ttl,
		logger:  logger.With("component", "registre-resolver"),
	}, nil
}

// Resolve returns the transformed record for a SIREN and variant, serving
// from cache when a fresh entry exists.
func (r *Resolver) Resolve(ctx context.Context, siren string, variant Variant) (*Record, error) {
	if siren == "" {
		return nil, fmt.Errorf("%w: empty siren", ErrInvalidInput)
	}
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrInvalidInput, variant)
	}

	key := CacheKey(siren, variant)
	if rec, ok := r.cache.Lookup(key); ok {
		r.logger.Debug("extract served from cache", "siren", siren, "variant", variant)
		return rec, nil
	}

	raw, err := r.fetcher.FetchExtract(ctx, siren, variant)
	if err != nil {
		return nil, err
	}

	rec := Transform(raw)
	r.cache.Store(key, rec, r.ttl)

	r.logger.Debug("extract fetched and cached", "siren", siren, "variant", variant, "ttl", r.ttl)
	return rec, nil
}

// CacheStats exposes the response cache counters for the stats resource.
func (r *Resolver) CacheStats() CacheMetrics {
	return r.cache.Stats()
}
