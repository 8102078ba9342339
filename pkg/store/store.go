// Package store provides the shared key-value store handle backed by Redis.
// It owns connection lifecycle and availability tracking, and implements the
// fail-open contract: transport errors are logged and absorbed here, never
// propagated to the cache or rate-limit layers built on top.
package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for store operations.
var (
	storeAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gatecache_store_available",
		Help: "Whether the backing store is currently available (1) or degraded (0)",
	})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecache_store_errors_total",
		Help: "Total store transport errors by operation",
	}, []string{"operation"})
)

// Config holds the store connection configuration.
type Config struct {
	// URL is the Redis connection string (redis://... or host:port).
	// Empty means the store is disabled: every operation degrades to
	// "absent/unavailable" and the layers above run pass-through.
	URL string

	// ConnectTimeout bounds each connection attempt.
	ConnectTimeout time.Duration

	// MaxRetries is the number of additional connection attempts after the
	// first failure.
	MaxRetries int

	// RetryBackoff is the base wait between attempts. Backoff grows linearly
	// per attempt and is capped at one second.
	RetryBackoff time.Duration
}

// DefaultConfig returns the default connection configuration for the given URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		ConnectTimeout: 5 * time.Second,
		MaxRetries:     2,
		RetryBackoff:   500 * time.Millisecond,
	}
}

// Handle is the process-wide store handle shared by all cache and rate-limit
// instances. Connection pooling is the Redis client's responsibility; Handle
// only tracks availability.
//
// State machine: Disconnected -> Connecting -> {Connected, Unavailable}, and
// Connected -> Unavailable on any transport error. There is no automatic
// recovery; a fresh Open is the only way back to Connected.
type Handle struct {
	client    *redis.Client
	available atomic.Bool
	logger    zerolog.Logger
}

// Open connects to the store described by cfg and returns a handle.
//
// Open never fails: a missing URL yields a disabled handle, and exhausting
// the retry budget yields an unavailable one. Callers check Available when
// they need to know, but every operation is safe on any handle.
func Open(ctx context.Context, cfg Config) *Handle {
	logger := log.With().Str("component", "store").Logger()

	h := &Handle{logger: logger}

	if cfg.URL == "" {
		logger.Info().Msg("No store URL configured - caching and rate limiting disabled")
		storeAvailable.Set(0)
		return h
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Plain host:port form.
		opts = &redis.Options{Addr: cfg.URL}
	}
	h.client = redis.NewClient(opts)

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		err = h.client.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			h.available.Store(true)
			storeAvailable.Set(1)
			logger.Info().Str("addr", opts.Addr).Msg("Connected to store")
			return h
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		backoff := cfg.RetryBackoff * time.Duration(attempt+1)
		if backoff > time.Second {
			backoff = time.Second
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Store connection failed - retrying")

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		if ctx.Err() != nil {
			break
		}
	}

	logger.Error().Err(err).Msg("Store unreachable after retries - running in degraded mode")
	storeAvailable.Set(0)
	return h
}

// Available reports whether the store is currently usable.
func (h *Handle) Available() bool {
	return h.available.Load()
}

// Close releases the underlying client connection.
func (h *Handle) Close() error {
	h.available.Store(false)
	storeAvailable.Set(0)
	if h.client == nil {
		return nil
	}
	return h.client.Close()
}

// fail records a transport error and transitions the handle to Unavailable.
//
// A cancellation carried in from the caller's context is not a transport
// failure: the call still degrades to absent, but the handle stays Connected
// and the error counter does not move. Without this, one aborted client
// request would disable the store for the rest of the process lifetime.
func (h *Handle) fail(operation, key string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.logger.Debug().
			Err(err).
			Str("operation", operation).
			Str("key", key).
			Msg("Store operation abandoned by caller")
		return
	}

	storeErrorsTotal.WithLabelValues(operation).Inc()
	if h.available.CompareAndSwap(true, false) {
		storeAvailable.Set(0)
		h.logger.Error().Msg("Store marked unavailable - degrading to pass-through")
	}
	h.logger.Warn().
		Err(err).
		Str("operation", operation).
		Str("key", key).
		Msg("Store operation failed")
}

// Get fetches the value stored at key. The second return is false when the
// key is absent, expired, or the store is unavailable.
func (h *Handle) Get(ctx context.Context, key string) ([]byte, bool) {
	if !h.Available() {
		return nil, false
	}

	data, err := h.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			h.fail("get", key, err)
		}
		return nil, false
	}
	return data, true
}

// Set writes value at key with the given TTL. Returns false when the write
// was skipped or failed; the failure is already logged.
func (h *Handle) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if !h.Available() {
		return false
	}

	if err := h.client.Set(ctx, key, value, ttl).Err(); err != nil {
		h.fail("set", key, err)
		return false
	}
	return true
}

// Delete removes the given keys as a single command and returns the number
// of keys actually removed. Deleting absent keys is a no-op.
func (h *Handle) Delete(ctx context.Context, keys ...string) int64 {
	if !h.Available() || len(keys) == 0 {
		return 0
	}

	removed, err := h.client.Del(ctx, keys...).Result()
	if err != nil {
		h.fail("delete", keys[0], err)
		return 0
	}
	return removed
}

// scanBatchSize bounds each SCAN round trip so a large keyspace never blocks
// the store with a single unbounded sweep.
const scanBatchSize = 100

// ScanPattern returns all keys matching the glob-style pattern, iterating
// the keyspace in bounded batches.
func (h *Handle) ScanPattern(ctx context.Context, pattern string) []string {
	if !h.Available() {
		return nil
	}

	var keys []string
	var cursor uint64
	for {
		batch, next, err := h.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			h.fail("scan", pattern, err)
			return keys
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys
		}
	}
}
