package httpmw

import (
	"net/http"

	"github.com/nomadtours/gatecache/pkg/ratelimit"
)

// RateLimit returns middleware gating requests through the limiter under the
// given logical endpoint name and tier. Rejected requests short-circuit with
// a 429 before the wrapped handler runs; admitted requests carry quota
// headers into the handler's response.
//
// Mount it outermost: nothing downstream, including the cache layer, should
// do work for a request that will be rejected.
func RateLimit(limiter *ratelimit.Limiter, endpoint string, tier ratelimit.Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Check(r.Context(), ClientIdentifier(r), endpoint, tier)
			if !res.Allowed {
				WriteRateLimited(w, res)
				return
			}

			SetRateLimitHeaders(w, res)
			next.ServeHTTP(w, r)
		})
	}
}
