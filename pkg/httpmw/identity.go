// Package httpmw adapts HTTP requests and responses to the rate limiter:
// it derives a stable client identifier from a request, attaches quota
// metadata to responses, and provides middleware that makes the limiter the
// outermost gate in a handler chain.
package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey int

const userIDKey contextKey = iota

// WithUserID returns a context carrying the authenticated principal id.
// Session middleware sets this after verifying credentials.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the authenticated principal id, or "" when anonymous.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// ClientIdentifier derives the rate-limit identifier for a request:
// "user:<id>" for authenticated principals, else "ip:<address>".
func ClientIdentifier(r *http.Request) string {
	if id := UserID(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + clientIP(r)
}

// clientIP resolves the client address, preferring the edge-injected header,
// then the first forwarded-for hop, then the direct peer headers and address.
// Only the first forwarded-for entry is trusted; the rest of the chain is
// attacker-controllable.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0]); first != "" {
			return first
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
