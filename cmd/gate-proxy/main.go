// Command gate-proxy is a caching, rate-limited reverse proxy in front of a
// slow system of record. GET requests under /p/ are admitted through the
// sliding-window limiter, then served read-through from the cache keyed on
// the upstream path.
//
// Without REDIS_URL the proxy still works: every request passes through to
// the upstream uncached and unlimited.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/nomadtours/gatecache/pkg/cache"
	"github.com/nomadtours/gatecache/pkg/httpmw"
	"github.com/nomadtours/gatecache/pkg/logging"
	"github.com/nomadtours/gatecache/pkg/ratelimit"
	"github.com/nomadtours/gatecache/pkg/store"
)

func main() {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Output: os.Stderr,
	})

	// REDIS_URL is optional: absent means caching and rate limiting disabled.
	redisURL := os.Getenv("REDIS_URL")
	port := getEnv("PORT", "8080")
	upstreamURL := getEnv("UPSTREAM_URL", "http://localhost:3000")

	ctx := context.Background()
	handle := store.Open(ctx, store.DefaultConfig(redisURL))
	defer handle.Close()

	cacheLayer := cache.New(handle)
	limiter := ratelimit.NewLimiter(handle, logging.NewLogger("ratelimit"))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(handle))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/p", func(r chi.Router) {
		// The limiter is the outermost gate; rejected requests never
		// reach the cache.
		r.Use(httpmw.RateLimit(limiter, "proxy", ratelimit.Public))
		r.Get("/*", proxyHandler(cacheLayer, upstreamURL))
	})

	addr := ":" + port
	log.Info().
		Str("addr", addr).
		Str("upstream", upstreamURL).
		Bool("store_available", handle.Available()).
		Msg("Starting gate-proxy")

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports readiness. A degraded store does not make the proxy
// unready: requests still flow uncached and unlimited.
func readyHandler(handle *store.Handle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if handle.Available() {
			fmt.Fprint(w, "OK")
			return
		}
		fmt.Fprint(w, "DEGRADED")
	}
}

// cachedResponse is the cacheable subset of an upstream response.
type cachedResponse struct {
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// upstreamStatusError carries a non-200 upstream response through the cache
// layer uncached.
type upstreamStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// proxyTTL is how long successful upstream responses stay cached.
const proxyTTL = 300 * time.Second

func proxyHandler(cacheLayer *cache.Cache, upstreamURL string) http.HandlerFunc {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	return func(w http.ResponseWriter, r *http.Request) {
		path := chi.URLParam(r, "*")
		target := upstreamURL + "/" + path
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		key := "upstream:" + path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}

		resp, err := cache.GetOrCompute(r.Context(), cacheLayer, key, proxyTTL, func(ctx context.Context) (cachedResponse, error) {
			return fetchUpstream(ctx, httpClient, target)
		})

		var statusErr *upstreamStatusError
		if errors.As(err, &statusErr) {
			// Forward non-200 upstream responses verbatim, uncached.
			w.WriteHeader(statusErr.StatusCode)
			w.Write(statusErr.Body)
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("target", target).Msg("Upstream request failed")
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}

		if resp.ContentType != "" {
			w.Header().Set("Content-Type", resp.ContentType)
		}
		w.WriteHeader(http.StatusOK)
		w.Write(resp.Body)
	}
}

func fetchUpstream(ctx context.Context, httpClient *http.Client, target string) (cachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return cachedResponse{}, fmt.Errorf("build upstream request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return cachedResponse{}, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cachedResponse{}, fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return cachedResponse{}, &upstreamStatusError{StatusCode: resp.StatusCode, Body: body}
	}

	return cachedResponse{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
