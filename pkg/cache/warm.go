package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"
)

// warmConcurrency bounds how many fetchers run in parallel during warming.
const warmConcurrency = 8

// WarmEntry describes one cache entry to precompute.
type WarmEntry struct {
	Key   string
	TTL   time.Duration
	Fetch func(context.Context) (any, error)
}

// Warm precomputes the given entries concurrently. Per-entry failures are
// isolated: a failing fetcher is logged and skipped without aborting the
// rest. Returns the number of entries successfully written.
func (c *Cache) Warm(ctx context.Context, entries []WarmEntry) int {
	if len(entries) == 0 || !c.store.Available() {
		return 0
	}

	start := time.Now()
	warmed := make(chan string, len(entries))

	var g errgroup.Group
	g.SetLimit(warmConcurrency)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			value, err := entry.Fetch(ctx)
			if err != nil {
				c.logger.Warn().
					Err(err).
					Str("key", entry.Key).
					Msg("Cache warm fetch failed - skipping entry")
				return nil
			}

			data, err := json.Marshal(value)
			if err != nil {
				CacheErrors.WithLabelValues("encode").Inc()
				c.logger.Warn().Err(err).Str("key", entry.Key).Msg("Cache warm encode failed - skipping entry")
				return nil
			}

			ttl := entry.TTL
			if ttl <= 0 {
				ttl = DefaultTTL
			}
			if c.store.Set(ctx, entry.Key, data, ttl) {
				warmed <- entry.Key
			}
			return nil
		})
	}
	g.Wait()
	close(warmed)

	count := len(warmed)
	c.logger.Info().
		Int("warmed", count).
		Int("total", len(entries)).
		Dur("duration", time.Since(start)).
		Msg("Cache warm complete")
	return count
}
