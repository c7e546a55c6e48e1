package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/concordtech/contact-api/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "cache.internal", Port: "6380"}
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}

func TestNewRedisCache_RequiresHost(t *testing.T) {
	_, err := NewRedisCache(&Config{Port: "6379"})
	assert.Error(t, err)
}

func TestNewRedisCache_GivesUpAfterBoundedRetries(t *testing.T) {
	_, err := NewRedisCache(&Config{
		Host:        "127.0.0.1",
		Port:        "1",
		DialTimeout: 100 * time.Millisecond,
		ConnectRetry: &retry.Config{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestRedisCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(&Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	assertCacheRoundTrip(t, cache)
	assert.NoError(t, cache.Ping(context.Background()))
}

func TestRedisCache_SetHonoursTTL(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(&Config{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "contact-api:ttl", "value", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("contact-api:ttl"))

	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "contact-api:ttl")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Runs against a real server when REDIS_TEST_ADDR is set, e.g. REDIS_TEST_ADDR=localhost:6379.
func TestRedisCache_RoundTripAgainstServer(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	host, port, _ := strings.Cut(addr, ":")

	cache, err := NewRedisCache(&Config{Host: host, Port: port, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	assertCacheRoundTrip(t, cache)
}

func assertCacheRoundTrip(t *testing.T, cache *RedisCache) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "contact-api:test", "value", time.Minute))

	got, err := cache.Get(ctx, "contact-api:test")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	require.NoError(t, cache.Delete(ctx, "contact-api:test"))
	got, err = cache.Get(ctx, "contact-api:test")
	require.NoError(t, err)
	assert.Empty(t, got)
}
