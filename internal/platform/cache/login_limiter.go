package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "login:attempts:"

// LoginLimiter counts login attempts per key in Redis so every API instance
// shares one budget. The counter expires window after the first attempt.
type LoginLimiter struct {
	rdb         redis.Cmdable
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(rdb redis.Cmdable, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, maxAttempts: maxAttempts, window: window}
}

// Reserve seeds the counter with its TTL (SET NX EX, any Redis version) and
// increments it in one MULTI. The attempt proceeds only if the incremented
// value is within the limit.
func (l *LoginLimiter) Reserve(ctx context.Context, key string) (bool, error) {
	if l.maxAttempts <= 0 {
		return true, nil
	}
	k := loginAttemptsPrefix + key
	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("cache.LoginLimiter.Reserve: %w", err)
	}
	return incr.Val() <= int64(l.maxAttempts), nil
}

func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, loginAttemptsPrefix+key).Err(); err != nil {
		return fmt.Errorf("cache.LoginLimiter.Reset: %w", err)
	}
	return nil
}
