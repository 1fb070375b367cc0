package lock

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only when the holder token still matches, so
// a lock that expired and was re-acquired by another checkout is never
// released from under it.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker serialises checkouts per user with a Redis SET NX lock.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// WithLock runs fn while holding the lock for key. Acquisition retries with
// jittered backoff until the context is cancelled; the lock is released when
// fn returns, success or not.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	token := uuid.NewString()
	for {
		acquired, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if err := l.wait(ctx); err != nil {
			return err
		}
	}

	defer func() {
		// release outlives the request context
		_ = l.R.Eval(context.Background(), releaseScript, []string{key}, token).Err()
	}()
	return fn(ctx)
}

func (l Locker) wait(ctx context.Context) error {
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	backoff += time.Duration(rand.Int63n(int64(backoff)/2 + 1))
	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
