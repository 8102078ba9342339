package cache

import (
	"context"
)

// Invalidate deletes the given keys. Invalidating absent keys is a no-op;
// store failures are logged and absorbed.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	removed := c.store.Delete(ctx, keys...)
	CacheInvalidations.WithLabelValues("key").Add(float64(len(keys)))
	c.logger.Debug().
		Strs("keys", keys).
		Int64("removed", removed).
		Msg("Cache keys invalidated")
}

// InvalidatePattern deletes every key matching the glob-style pattern.
// The keyspace is scanned in bounded batches and the collected keys are
// removed as a single batched delete. Returns the number of keys removed.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) int64 {
	keys := c.store.ScanPattern(ctx, pattern)
	if len(keys) == 0 {
		return 0
	}

	removed := c.store.Delete(ctx, keys...)
	CacheInvalidations.WithLabelValues("pattern").Add(float64(removed))
	c.logger.Debug().
		Str("pattern", pattern).
		Int64("removed", removed).
		Msg("Cache pattern invalidated")
	return removed
}

// InvalidateEntity clears every cached view of a mutated entity: the
// caller-supplied direct and related keys, then the entity's whole list-view
// namespace via listPattern.
//
// The pattern sweep is deliberately broad. Paginated listings cannot be
// targeted precisely without knowing every page the entity might appear on,
// so every mutation clears them all; narrowing this reintroduces stale-list
// bugs.
func (c *Cache) InvalidateEntity(ctx context.Context, entityID string, keys []string, listPattern string) {
	c.Invalidate(ctx, keys...)

	var swept int64
	if listPattern != "" {
		swept = c.InvalidatePattern(ctx, listPattern)
	}

	CacheInvalidations.WithLabelValues("entity").Inc()
	c.logger.Debug().
		Str("entity_id", entityID).
		Int("keys", len(keys)).
		Int64("swept", swept).
		Msg("Entity caches invalidated")
}
