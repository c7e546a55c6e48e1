package factory

import (
	"time"

	"github.com/concordtech/contact-api/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type RedisClientProvider interface {
	GetRedisClient() *redis.Client
}

type RateLimiterFactory interface {
	CreateRateLimiter(requests int, window time.Duration) ratelimit.RateLimiter
}

// DefaultRateLimiterFactory builds Redis sliding-window limiters when a client is available and
// in-memory token buckets otherwise.
type DefaultRateLimiterFactory struct {
	redis  *redis.Client
	logger ratelimit.Logger
}

func NewDefaultRateLimiterFactory(client *redis.Client, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	return &DefaultRateLimiterFactory{
		redis:  client,
		logger: logger,
	}
}

// NewRateLimiterFactoryFrom picks up the Redis client of provider, typically the RouterService.
func NewRateLimiterFactoryFrom(provider RedisClientProvider, logger ratelimit.Logger) *DefaultRateLimiterFactory {
	var client *redis.Client
	if provider != nil {
		client = provider.GetRedisClient()
	}
	return NewDefaultRateLimiterFactory(client, logger)
}

func (f *DefaultRateLimiterFactory) CreateRateLimiter(requests int, window time.Duration) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: requests,
		Window:   window,
		Redis:    f.redis,
		Logger:   f.logger,
	})
}

func (f *DefaultRateLimiterFactory) Distributed() bool {
	return f.redis != nil
}
