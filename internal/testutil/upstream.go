// Package testutil provides testing utilities for gatecache.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// UpstreamResponse defines the behavior for a mock upstream endpoint.
type UpstreamResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Upstream is a configurable mock system-of-record server. Tests use its
// request counter to prove whether a read was served from cache or fell
// through to the source.
type Upstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requestCount int
	lastHeader   http.Header
}

// NewUpstream creates a new mock upstream server.
func NewUpstream() *Upstream {
	u := &Upstream{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.requestCount++
		u.lastHeader = r.Header.Clone()
		u.mu.Unlock()

		u.mu.RLock()
		handler, exists := u.handlers[r.URL.Path]
		u.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		u.defaultHandler(w, r)
	}))

	return u
}

// URL returns the mock server URL.
func (u *Upstream) URL() string {
	return u.server.URL
}

// Close shuts down the mock server.
func (u *Upstream) Close() {
	u.server.Close()
}

// Reset clears the request tracking.
func (u *Upstream) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.requestCount = 0
	u.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (u *Upstream) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (u *Upstream) SetResponse(path string, resp UpstreamResponse) {
	u.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests that reached the upstream.
func (u *Upstream) RequestCount() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.requestCount
}

// LastHeader returns the headers of the most recent request.
func (u *Upstream) LastHeader() http.Header {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastHeader
}

// defaultHandler serves a generic JSON payload.
func (u *Upstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// NewTourResponse creates a 200 OK response with a tour-like JSON body.
func NewTourResponse(body string) UpstreamResponse {
	return UpstreamResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() UpstreamResponse {
	return UpstreamResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
