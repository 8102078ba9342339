package ratelimit

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nomadtours/gatecache/pkg/store"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// setupTestStore opens a handle against the local test Redis, skipping when
// none is running.
func setupTestStore(t *testing.T) *store.Handle {
	t.Helper()

	raw := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	ctx := context.Background()
	if err := raw.Ping(ctx).Err(); err != nil {
		raw.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := raw.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	h := store.Open(ctx, store.DefaultConfig("redis://localhost:6379/15"))
	t.Cleanup(func() {
		raw.FlushDB(context.Background())
		raw.Close()
		h.Close()
	})
	return h
}

func TestNewLimiter_NilHandle(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewLimiter should panic with nil store handle")
		}
	}()
	NewLimiter(nil, testLogger())
}

func TestCheck_QuotaExhaustion(t *testing.T) {
	l := NewLimiter(setupTestStore(t), testLogger())
	ctx := context.Background()

	tier := Tier{Name: "test", Window: time.Minute, MaxRequests: 5}

	for i := 0; i < 5; i++ {
		res := l.Check(ctx, "ip:1.2.3.4", "login", tier)
		if !res.Allowed {
			t.Fatalf("request %d rejected, want admitted", i+1)
		}
		if want := 5 - i - 1; res.Remaining != want {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, res.Remaining, want)
		}
		if res.RetryAfter != 0 {
			t.Errorf("request %d: RetryAfter = %d on admission, want 0", i+1, res.RetryAfter)
		}
	}

	res := l.Check(ctx, "ip:1.2.3.4", "login", tier)
	if res.Allowed {
		t.Error("6th request admitted, want rejected")
	}
	if res.Remaining != 0 {
		t.Errorf("rejected Remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfter < 1 {
		t.Errorf("rejected RetryAfter = %d, want >= 1", res.RetryAfter)
	}
	if now := time.Now().Unix(); res.ResetAt <= now-1 {
		t.Errorf("rejected ResetAt = %d, want after now (%d)", res.ResetAt, now)
	}
}

func TestCheck_RetryAfterRoundsUp(t *testing.T) {
	l := NewLimiter(setupTestStore(t), testLogger())
	ctx := context.Background()

	tier := Tier{Name: "test", Window: 10 * time.Second, MaxRequests: 1}

	if !l.Check(ctx, "ip:1.2.3.4", "export", tier).Allowed {
		t.Fatal("1st request rejected")
	}

	// Rejected immediately after: just under 10s of window remains, and a
	// truncated 9 would send the client back one second too early.
	res := l.Check(ctx, "ip:1.2.3.4", "export", tier)
	if res.Allowed {
		t.Fatal("2nd request admitted within window")
	}
	if want := 10; res.RetryAfter != want {
		t.Errorf("RetryAfter = %d, want %d (rounded up)", res.RetryAfter, want)
	}
}

func TestCheck_WindowSlides(t *testing.T) {
	l := NewLimiter(setupTestStore(t), testLogger())
	ctx := context.Background()

	tier := Tier{Name: "test", Window: 200 * time.Millisecond, MaxRequests: 2}

	if !l.Check(ctx, "ip:1.2.3.4", "search", tier).Allowed {
		t.Fatal("1st request rejected")
	}
	if !l.Check(ctx, "ip:1.2.3.4", "search", tier).Allowed {
		t.Fatal("2nd request rejected")
	}
	if l.Check(ctx, "ip:1.2.3.4", "search", tier).Allowed {
		t.Fatal("3rd request admitted within window")
	}

	// After the window passes the identifier gets fresh quota.
	time.Sleep(300 * time.Millisecond)
	if !l.Check(ctx, "ip:1.2.3.4", "search", tier).Allowed {
		t.Error("request after window rejected, want admitted")
	}
}

func TestCheck_Concurrent(t *testing.T) {
	l := NewLimiter(setupTestStore(t), testLogger())

	// Sensitive-shaped tier: exactly MaxRequests concurrent checks admit.
	tier := Tier{Name: "sensitive", Window: 15 * time.Minute, MaxRequests: 5}

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check(context.Background(), "ip:1.2.3.4", "login", tier).Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 5 {
		t.Errorf("%d of 5 concurrent requests admitted, want 5", admitted.Load())
	}

	res := l.Check(context.Background(), "ip:1.2.3.4", "login", tier)
	if res.Allowed {
		t.Error("6th request admitted, want rejected")
	}
	if res.RetryAfter < 1 {
		t.Errorf("RetryAfter = %d, want >= 1", res.RetryAfter)
	}
}

func TestCheck_IdentifiersIsolated(t *testing.T) {
	l := NewLimiter(setupTestStore(t), testLogger())
	ctx := context.Background()

	tier := Tier{Name: "test", Window: time.Minute, MaxRequests: 1}

	if !l.Check(ctx, "ip:1.2.3.4", "login", tier).Allowed {
		t.Fatal("first identifier rejected")
	}
	if l.Check(ctx, "ip:1.2.3.4", "login", tier).Allowed {
		t.Fatal("first identifier's second request admitted")
	}

	// A different identifier, and a different endpoint, have their own windows.
	if !l.Check(ctx, "ip:5.6.7.8", "login", tier).Allowed {
		t.Error("second identifier rejected, windows should not contend")
	}
	if !l.Check(ctx, "ip:1.2.3.4", "search", tier).Allowed {
		t.Error("other endpoint rejected, windows should not contend")
	}
}

func TestCheck_FailOpen(t *testing.T) {
	h := store.Open(context.Background(), store.DefaultConfig(""))
	l := NewLimiter(h, testLogger())

	for i := 0; i < 100; i++ {
		res := l.Check(context.Background(), "ip:1.2.3.4", "login", Sensitive)
		if !res.Allowed {
			t.Fatalf("request %d rejected without store, want fail-open admission", i+1)
		}
		if res.Remaining != Sensitive.MaxRequests {
			t.Fatalf("fail-open Remaining = %d, want %d", res.Remaining, Sensitive.MaxRequests)
		}
	}
}

func TestTiers(t *testing.T) {
	tests := []struct {
		tier        Tier
		window      time.Duration
		maxRequests int
	}{
		{Public, time.Minute, 30},
		{Authenticated, time.Minute, 100},
		{Admin, time.Minute, 300},
		{Sensitive, 15 * time.Minute, 5},
		{Heavy, time.Hour, 10},
	}

	for _, tt := range tests {
		t.Run(tt.tier.Name, func(t *testing.T) {
			if tt.tier.Window != tt.window {
				t.Errorf("Window = %v, want %v", tt.tier.Window, tt.window)
			}
			if tt.tier.MaxRequests != tt.maxRequests {
				t.Errorf("MaxRequests = %d, want %d", tt.tier.MaxRequests, tt.maxRequests)
			}
		})
	}
}

func TestWindowKey(t *testing.T) {
	if got := windowKey("user:7", "checkout"); got != "ratelimit:user:7:checkout" {
		t.Errorf("windowKey = %q", got)
	}
}
