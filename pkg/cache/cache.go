package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/nomadtours/gatecache/pkg/store"
)

// DefaultTTL is used when callers pass a non-positive TTL.
const DefaultTTL = 300 * time.Second

// writeBackTimeout bounds the background write after a computed miss.
const writeBackTimeout = 5 * time.Second

// Cache is a read-through cache over a shared store handle.
type Cache struct {
	store  *store.Handle
	logger zerolog.Logger

	// group deduplicates concurrent fetches for the same key so a miss
	// storm runs the fetcher once.
	group singleflight.Group

	// pending tracks in-flight background write-backs for Flush.
	pending sync.WaitGroup
}

// New creates a cache over the given store handle.
func New(handle *store.Handle) *Cache {
	if handle == nil {
		panic("store handle cannot be nil")
	}
	return &Cache{
		store:  handle,
		logger: log.With().Str("component", "cache").Logger(),
	}
}

// GetOrCompute returns the cached value at key, or runs fetch and returns its
// result. A miss populates the cache in the background; the write is never
// awaited and its failure is only observable via logs.
//
// Fetch errors propagate verbatim and nothing is cached for a failed fetch.
// When the store is unavailable the fetcher is called directly.
//
// A key must always decode into the same Go type across callers.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if !c.store.Available() {
		CacheBypass.Inc()
		return fetch(ctx)
	}

	if data, ok := c.store.Get(ctx, key); ok {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			CacheHits.Inc()
			return value, nil
		}
		// Undecodable entry is a miss; the fresh result overwrites it.
		CacheErrors.WithLabelValues("decode").Inc()
		c.logger.Warn().Str("key", key).Msg("Undecodable cache entry - refetching")
	}
	CacheMisses.Inc()

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.writeBack(ctx, key, value, ttl)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Set writes value at key directly, bypassing the read path. Failures are
// logged and absorbed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("encode").Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache encode failed - value not cached")
		return
	}
	c.store.Set(ctx, key, data, ttl)
}

// writeBack populates key with value in a detached goroutine. The caller's
// context may already be done by the time the write runs, so the goroutine
// carries its values without its cancellation.
func (c *Cache) writeBack(ctx context.Context, key string, value any, ttl time.Duration) {
	bgCtx := context.WithoutCancel(ctx)

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()

		data, err := json.Marshal(value)
		if err != nil {
			CacheErrors.WithLabelValues("encode").Inc()
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache encode failed - result not cached")
			return
		}

		writeCtx, cancel := context.WithTimeout(bgCtx, writeBackTimeout)
		defer cancel()

		if c.store.Set(writeCtx, key, data, ttl) {
			c.logger.Debug().
				Str("key", key).
				Dur("ttl", ttl).
				Msg("Cache populated")
		}
	}()
}

// Flush blocks until all background write-backs have settled. Intended for
// shutdown and tests; the read path never calls it.
func (c *Cache) Flush() {
	c.pending.Wait()
}
