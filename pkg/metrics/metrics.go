// Package metrics provides the centralized Prometheus metrics registry for
// gatecache. All metrics are defined in their respective packages (store,
// cache, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by gatecache.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Store Metrics (pkg/store):
//   - gatecache_store_available (Gauge): 1 while the backing store is reachable, 0 in degraded mode
//   - gatecache_store_errors_total{operation} (Counter): Transport errors by operation
//     (get, set, delete, scan, zadd, zremrangebyscore, zcard, zrange, pexpire, count_window)
//
// Cache Metrics (pkg/cache):
//   - gatecache_cache_hits_total (Counter): Reads served from the store
//   - gatecache_cache_misses_total (Counter): Reads that fell through to the fetcher
//   - gatecache_cache_bypass_total (Counter): Reads skipped because the store was unavailable
//   - gatecache_cache_errors_total{operation} (Counter): Encode/decode failures
//   - gatecache_cache_invalidations_total{kind} (Counter): Invalidations by kind (key, pattern, entity)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - gatecache_ratelimit_allowed_total{tier, endpoint} (Counter): Admitted requests
//   - gatecache_ratelimit_rejected_total{tier, endpoint} (Counter): Rejected requests
//   - gatecache_ratelimit_fail_open_total (Counter): Checks admitted uncounted during store outage
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   rate(gatecache_cache_hits_total[5m]) /
//   (rate(gatecache_cache_hits_total[5m]) + rate(gatecache_cache_misses_total[5m]))
//
//   # Rejection Rate by Endpoint
//   sum by (endpoint) (rate(gatecache_ratelimit_rejected_total[5m]))
//
//   # Degraded Mode
//   gatecache_store_available == 0
//
//   # Store Error Rate
//   rate(gatecache_store_errors_total[5m])
