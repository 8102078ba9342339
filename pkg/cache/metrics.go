package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks reads served from the store.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatecache_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses tracks reads that fell through to the fetcher.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatecache_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// CacheBypass tracks reads that skipped the store entirely because it
	// was unavailable.
	CacheBypass = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gatecache_cache_bypass_total",
			Help: "Total number of reads bypassing an unavailable store",
		},
	)

	// CacheErrors tracks cache operation errors by operation.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatecache_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "encode", "decode"
	)

	// CacheInvalidations tracks explicit invalidations by kind.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatecache_cache_invalidations_total",
			Help: "Total number of cache invalidations",
		},
		[]string{"kind"}, // "key", "pattern", "entity"
	)
)
