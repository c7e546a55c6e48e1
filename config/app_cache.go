package config

import (
	"context"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/concordtech/contact-api/internal/log"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	pkgredis "github.com/concordtech/contact-api/pkg/redis"
	"github.com/go-redis/redis/v8"
)

// Cache is the Redis connection shared by the redis storage backend, the rate limiters and the
// health probe.
type Cache interface {
	Ping(ctx context.Context) error
	Close() error
	GetClient() *redis.Client
}

var ErrCacheNotConfigured = apperrors.NewConfigurationError("REDIS_HOST is not set", nil)

type CacheConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// NewCacheConfig reads the Redis settings. A malformed or negative REDIS_DB selects database 0.
func NewCacheConfig() *CacheConfig {
	cc := &CacheConfig{Port: "6379"}
	if err := env.Parse(cc); err != nil {
		cc.DB = 0
	}

	cc.Host = strings.TrimSpace(cc.Host)
	if cc.DB < 0 {
		cc.DB = 0
	}

	return cc
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

func (cc *CacheConfig) redisConfig() *pkgredis.Config {
	return &pkgredis.Config{
		Host:     cc.Host,
		Port:     cc.Port,
		Password: cc.Password,
		DB:       cc.DB,
	}
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cfg := cc.redisConfig()
	cache, err := pkgredis.NewRedisCache(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "addr", cfg.Addr(), "error", err)
		return nil, err
	}

	logger.Info("Redis connected", "addr", cfg.Addr(), "db", cc.DB)
	return cache, nil
}

// NewCacheOrNil returns nil when Redis is unset or unreachable. Rate limiting then stays in
// memory and a redis storage backend reports itself unavailable.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("REDIS_HOST not set; running without Redis")
		return nil
	}

	cache, err := cc.NewCache(logger)
	if err != nil {
		return nil
	}
	return cache
}

func GetRedisClient(cache Cache) *redis.Client {
	if cache == nil {
		return nil
	}
	return cache.GetClient()
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close Redis connection", "error", err)
		return err
	}

	logger.Info("Redis connection closed")
	return nil
}
