package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding-window counter over a Redis sorted set. Each call
// records one event; events older than the window are pruned before counting.
type Limiter struct {
	Client *redis.Client
	Prefix string
}

// Allow records an event under key and reports whether the caller is still
// inside the window budget, along with the remaining budget and when the
// window resets. A zero max or window disables limiting.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	reset := time.Now().Add(window)
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, reset, nil
	}

	now := time.Now()
	bucket := l.Prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, bucket, "-inf", cutoff)
	pipe.ZAdd(ctx, bucket, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, reset, err
	}

	used := int(count.Val())
	remaining := max - used
	if remaining < 0 {
		remaining = 0
	}
	return used <= max, remaining, reset, nil
}
