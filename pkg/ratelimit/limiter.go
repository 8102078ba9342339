package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/nomadtours/gatecache/pkg/store"
)

// Prometheus metrics for admission decisions.
var (
	requestsAllowedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecache_ratelimit_allowed_total",
		Help: "Total requests admitted by tier and endpoint",
	}, []string{"tier", "endpoint"})

	requestsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatecache_ratelimit_rejected_total",
		Help: "Total requests rejected by tier and endpoint",
	}, []string{"tier", "endpoint"})

	failOpenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatecache_ratelimit_fail_open_total",
		Help: "Total checks admitted without counting because the store was unavailable",
	})
)

// Limiter gates requests using one sorted set per identifier+endpoint.
type Limiter struct {
	store  *store.Handle
	logger zerolog.Logger
}

// NewLimiter creates a limiter over the given store handle.
func NewLimiter(handle *store.Handle, logger zerolog.Logger) *Limiter {
	if handle == nil {
		panic("store handle cannot be nil")
	}
	return &Limiter{
		store:  handle,
		logger: logger,
	}
}

// windowKey names the sorted set holding the window for one identifier and
// endpoint. Different keys never contend; the key is the only lock boundary.
func windowKey(identifier, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", identifier, endpoint)
}

// Check counts the request against the identifier's sliding window for
// endpoint and decides admission.
//
// The prune/count/add sequence runs as one atomic store round trip, so two
// concurrent requests racing for the last slot cannot both observe the stale
// low count and both be admitted. The window member is scored at now and
// disambiguated with a random suffix so same-millisecond requests count
// separately.
//
// When the store is unavailable the check admits with a full quota.
func (l *Limiter) Check(ctx context.Context, identifier, endpoint string, tier Tier) Result {
	now := time.Now()

	if !l.store.Available() {
		failOpenTotal.Inc()
		return Result{
			Allowed:   true,
			Remaining: tier.MaxRequests,
			ResetAt:   now.Add(tier.Window).Unix(),
		}
	}

	key := windowKey(identifier, endpoint)
	member := fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString())

	sample, ok := l.store.CountWindow(ctx, key, member, now, tier.Window)
	if !ok {
		// Store dropped out mid-check; admit rather than reject.
		failOpenTotal.Inc()
		l.logger.Warn().
			Str("identifier", identifier).
			Str("endpoint", endpoint).
			Msg("Rate limit check degraded to fail-open")
		return Result{
			Allowed:   true,
			Remaining: tier.MaxRequests,
			ResetAt:   now.Add(tier.Window).Unix(),
		}
	}

	// An empty window between prune and read yields a full-window estimate.
	// Conservative on purpose; the caller waits at most one extra window.
	oldestMs := now.UnixMilli()
	if sample.HasOldest {
		oldestMs = sample.OldestMs
	}
	windowMs := tier.Window.Milliseconds()
	resetAt := (oldestMs + windowMs) / 1000

	if sample.Prior >= int64(tier.MaxRequests) {
		// Round up: telling the client 59 when 59.9s remain sends it back
		// a second early, only to be rejected again.
		retryAfter := int((oldestMs + windowMs - now.UnixMilli() + 999) / 1000)
		if retryAfter < 1 {
			retryAfter = 1
		}

		requestsRejectedTotal.WithLabelValues(tier.Name, endpoint).Inc()
		l.logger.Warn().
			Str("identifier", identifier).
			Str("endpoint", endpoint).
			Str("tier", tier.Name).
			Int64("count", sample.Prior).
			Int("retry_after", retryAfter).
			Msg("Rate limit exceeded")

		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter,
		}
	}

	remaining := tier.MaxRequests - int(sample.Prior) - 1
	if remaining < 0 {
		remaining = 0
	}

	requestsAllowedTotal.WithLabelValues(tier.Name, endpoint).Inc()
	return Result{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
