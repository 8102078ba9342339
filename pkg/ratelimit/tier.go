// Package ratelimit implements sliding-window admission control per
// identifier and endpoint, backed by the shared store's sorted sets.
// Limiting is advisory infrastructure: when the store is unavailable every
// check admits (fail-open) rather than taking request handling down with it.
package ratelimit

import (
	"time"
)

// Tier is a named rate-limit profile applied by caller trust level.
// The set is closed and loaded at process start; tiers are immutable.
type Tier struct {
	// Name labels the tier in logs and metrics.
	Name string

	// Window is the sliding window length.
	Window time.Duration

	// MaxRequests is the number of requests admitted per window.
	MaxRequests int
}

// The five tiers, ordered from least to most restrictive quota density.
var (
	// Public applies to unauthenticated read traffic.
	Public = Tier{Name: "public", Window: time.Minute, MaxRequests: 30}

	// Authenticated applies to signed-in users.
	Authenticated = Tier{Name: "authenticated", Window: time.Minute, MaxRequests: 100}

	// Admin applies to back-office traffic.
	Admin = Tier{Name: "admin", Window: time.Minute, MaxRequests: 300}

	// Sensitive applies to abuse-prone operations such as login and
	// inquiry submission.
	Sensitive = Tier{Name: "sensitive", Window: 15 * time.Minute, MaxRequests: 5}

	// Heavy applies to expensive operations such as exports.
	Heavy = Tier{Name: "heavy", Window: time.Hour, MaxRequests: 10}
)

// Result is the outcome of a rate-limit check. A rejection is a normal
// result value, not an error.
type Result struct {
	// Allowed reports whether the request is admitted.
	Allowed bool

	// Remaining is the quota left in the current window after this request.
	Remaining int

	// ResetAt is the Unix-seconds instant when the oldest counted request
	// leaves the window.
	ResetAt int64

	// RetryAfter is the suggested wait in whole seconds before retrying,
	// at least 1 on rejection and 0 on admission.
	RetryAfter int
}
