package httpmw

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/nomadtours/gatecache/pkg/ratelimit"
)

// SetRateLimitHeaders attaches quota metadata to a response so clients can
// pace themselves before hitting the limit.
func SetRateLimitHeaders(w http.ResponseWriter, res ratelimit.Result) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt, 10))
}

// rateLimitedBody is the machine-readable 429 payload. Field names are a
// wire contract; programmatic clients parse retryAfter to back off.
type rateLimitedBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// WriteRateLimited writes the full 429 rejection: quota headers, Retry-After,
// and the JSON body.
func WriteRateLimited(w http.ResponseWriter, res ratelimit.Result) {
	SetRateLimitHeaders(w, res)
	w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	body := rateLimitedBody{
		Error:      "Too many requests",
		Message:    fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", res.RetryAfter),
		RetryAfter: res.RetryAfter,
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to write rate limit response")
	}
}
