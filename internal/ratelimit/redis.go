package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests in fixed one-second windows shared by every
// replica pointing at the same redis.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int64
	now   func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, perSecond int) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: int64(perSecond), now: time.Now}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	window := r.now().Unix()
	k := key + ":" + strconv.FormatInt(window, 10)

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	n := incr.Val()
	if n > r.limit {
		return Decision{Allowed: false, RetryAfterSeconds: 1}, nil
	}
	return Decision{Allowed: true, Remaining: int(r.limit - n)}, nil
}

func (r *RedisLimiter) Close() error { return r.rdb.Close() }
