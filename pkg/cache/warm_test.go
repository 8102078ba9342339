package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWarm(t *testing.T) {
	c := New(setupTestStore(t))
	ctx := context.Background()

	entries := []WarmEntry{
		{Key: "tour:1", TTL: time.Minute, Fetch: func(ctx context.Context) (any, error) {
			return tour{ID: 1, Title: "Gobi"}, nil
		}},
		{Key: "tour:2", TTL: time.Minute, Fetch: func(ctx context.Context) (any, error) {
			return tour{ID: 2, Title: "Altai"}, nil
		}},
		{Key: "tour:3", TTL: time.Minute, Fetch: func(ctx context.Context) (any, error) {
			return nil, errors.New("source unavailable")
		}},
	}

	if warmed := c.Warm(ctx, entries); warmed != 2 {
		t.Errorf("Warm = %d entries, want 2 (failing fetcher isolated)", warmed)
	}

	// Warmed keys serve without invoking their fetchers.
	for _, key := range []string{"tour:1", "tour:2"} {
		var calls atomic.Int32
		if _, err := GetOrCompute(ctx, c, key, time.Minute, func(ctx context.Context) (tour, error) {
			calls.Add(1)
			return tour{}, nil
		}); err != nil {
			t.Fatalf("GetOrCompute(%s): %v", key, err)
		}
		if calls.Load() != 0 {
			t.Errorf("%s: fetcher invoked %d times after warming, want 0", key, calls.Load())
		}
	}

	// The failed entry stays cold.
	var calls atomic.Int32
	if _, err := GetOrCompute(ctx, c, "tour:3", time.Minute, func(ctx context.Context) (tour, error) {
		calls.Add(1)
		return tour{ID: 3}, nil
	}); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("tour:3: fetcher invoked %d times, want 1", calls.Load())
	}
}

func TestWarm_DisabledStore(t *testing.T) {
	c := New(disabledStore(t))

	var calls atomic.Int32
	warmed := c.Warm(context.Background(), []WarmEntry{
		{Key: "tour:1", Fetch: func(ctx context.Context) (any, error) {
			calls.Add(1)
			return tour{ID: 1}, nil
		}},
	})

	if warmed != 0 {
		t.Errorf("Warm = %d without store, want 0", warmed)
	}
	if calls.Load() != 0 {
		t.Errorf("fetcher invoked %d times without store, want 0", calls.Load())
	}
}

func TestWarm_Empty(t *testing.T) {
	c := New(disabledStore(t))
	if warmed := c.Warm(context.Background(), nil); warmed != 0 {
		t.Errorf("Warm(nil) = %d, want 0", warmed)
	}
}
