package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "ratelimit:"

// slidingWindow trims expired entries, counts, and records the request in one round trip.
// Returns 1 when the request is over the limit.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
	if redis.call('ZCARD', key) >= limit then
		return 1
	end

	redis.call('ZADD', key, now, ARGV[5])
	redis.call('EXPIRE', key, ttl)
	return 0
`)

// RedisRateLimiter counts requests in a sorted set per key so every instance shares one window.
type RedisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	logger   Logger
	now      func() time.Time
}

// NewRedisRateLimiter borrows client; Close leaves it open.
func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration, logger Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		requests: requests,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *RedisRateLimiter) GetLimitDetails() (int, time.Duration) {
	return r.requests, r.window
}

func (r *RedisRateLimiter) IsLimited(ctx context.Context, key string) (bool, error) {
	if !strings.HasPrefix(key, redisKeyPrefix) {
		key = redisKeyPrefix + key
	}

	ttl := max(int64((2 * r.window).Seconds()), 1)

	over, err := slidingWindow.Run(ctx, r.client, []string{key},
		r.now().UnixMilli(),
		r.window.Milliseconds(),
		r.requests,
		ttl,
		uuid.NewString(),
	).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Redis rate limit script failed", "key", key, "error", err)
		}
		return false, fmt.Errorf("rate limiter redis: %w", err)
	}

	return over == 1, nil
}

func (r *RedisRateLimiter) Close() error {
	return nil
}
