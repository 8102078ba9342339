package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Member is a sorted-set member with its score.
type Member struct {
	Score float64
	Value string
}

// WindowSample is the result of one atomic sliding-window round trip.
type WindowSample struct {
	// Prior is the number of members inside the window before the new
	// member was added.
	Prior int64

	// OldestMs is the score (Unix milliseconds) of the oldest surviving
	// member, including the one just added.
	OldestMs int64

	// HasOldest is false when the window read back empty, which can happen
	// transiently between prune and read.
	HasOldest bool
}

// CountWindow executes the sliding-window sequence for key as one MULTI/EXEC
// round trip: prune members older than the window, count the survivors, add
// member scored at now, read the oldest survivor, and refresh the key TTL to
// the window length so idle windows self-clean.
//
// The pipelining is what keeps two concurrent calls for the same key from
// both observing a stale low count; it must not be split into separate calls.
// The second return is false when the store is unavailable.
func (h *Handle) CountWindow(ctx context.Context, key, member string, now time.Time, window time.Duration) (WindowSample, bool) {
	if !h.Available() {
		return WindowSample{}, false
	}

	nowMs := now.UnixMilli()
	windowStart := nowMs - window.Milliseconds()

	pipe := h.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", windowStart))
	cardCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: member})
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.PExpire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		h.fail("count_window", key, err)
		return WindowSample{}, false
	}

	sample := WindowSample{Prior: cardCmd.Val()}
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		sample.OldestMs = int64(oldest[0].Score)
		sample.HasOldest = true
	}
	return sample, true
}

// ZAdd adds member to the sorted set at key with the given score.
func (h *Handle) ZAdd(ctx context.Context, key string, score float64, member string) bool {
	if !h.Available() {
		return false
	}

	if err := h.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		h.fail("zadd", key, err)
		return false
	}
	return true
}

// ZRemRangeByScore removes members of key with scores in [min, max].
// Bounds use Redis range syntax, e.g. "-inf" or "(42".
func (h *Handle) ZRemRangeByScore(ctx context.Context, key, min, max string) int64 {
	if !h.Available() {
		return 0
	}

	removed, err := h.client.ZRemRangeByScore(ctx, key, min, max).Result()
	if err != nil {
		h.fail("zremrangebyscore", key, err)
		return 0
	}
	return removed
}

// ZCard returns the cardinality of the sorted set at key.
func (h *Handle) ZCard(ctx context.Context, key string) int64 {
	if !h.Available() {
		return 0
	}

	count, err := h.client.ZCard(ctx, key).Result()
	if err != nil {
		h.fail("zcard", key, err)
		return 0
	}
	return count
}

// ZRangeWithScores returns members of key by rank, lowest score first.
func (h *Handle) ZRangeWithScores(ctx context.Context, key string, start, stop int64) []Member {
	if !h.Available() {
		return nil
	}

	zs, err := h.client.ZRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		h.fail("zrange", key, err)
		return nil
	}

	members := make([]Member, len(zs))
	for i, z := range zs {
		members[i] = Member{Score: z.Score, Value: fmt.Sprint(z.Member)}
	}
	return members
}

// PExpire sets the TTL of key with millisecond resolution.
func (h *Handle) PExpire(ctx context.Context, key string, ttl time.Duration) bool {
	if !h.Available() {
		return false
	}

	if err := h.client.PExpire(ctx, key, ttl).Err(); err != nil {
		h.fail("pexpire", key, err)
		return false
	}
	return true
}
