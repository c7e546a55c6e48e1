package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisBackend_RequiresClient(t *testing.T) {
	_, err := NewRedisBackend(nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRedisBackend_UnreachableServerIsUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })

	b, err := NewRedisBackend(client)
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, b.Save(ctx, submission("1", "2024-01-01T00:00:00.000Z")), ErrUnavailable)

	_, err = b.List(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, b.Ping(ctx), ErrUnavailable)
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 100 * time.Millisecond,
		ReadTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func assertRoundTrip(t *testing.T, client *redis.Client, b *RedisBackend) {
	t.Helper()
	ctx := context.Background()

	first := submission("1", "2024-01-01T00:00:00.000Z")
	second := submission("2", "2024-01-02T00:00:00.000Z")
	require.NoError(t, b.Save(ctx, first))
	require.NoError(t, b.Save(ctx, second))

	// dangling index entry with no value
	require.NoError(t, client.LPush(ctx, b.listKey, "ghost").Err())

	list, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Submission{*second, *first}, list)

	stored, err := client.Get(ctx, b.key("1")).Result()
	require.NoError(t, err)
	assert.Contains(t, stored, `"firstName":"Ada"`)
}

func TestRedisBackend_RoundTrip(t *testing.T) {
	_, client := newMiniredisClient(t)

	b, err := NewRedisBackend(client)
	require.NoError(t, err)

	assertRoundTrip(t, client, b)
}

func TestRedisBackend_SaveWritesValueAndIndexTogether(t *testing.T) {
	mr, client := newMiniredisClient(t)

	b, err := NewRedisBackend(client)
	require.NoError(t, err)

	require.NoError(t, b.Save(context.Background(), submission("7", "2024-01-01T00:00:00.000Z")))

	ids, err := mr.List(b.listKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids)
	assert.True(t, mr.Exists(b.key("7")))
}

func TestRedisBackend_EmptyListIsNotNil(t *testing.T) {
	_, client := newMiniredisClient(t)

	b, err := NewRedisBackend(client)
	require.NoError(t, err)

	list, err := b.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRedisBackend_ListSkipsUndecodableValues(t *testing.T) {
	mr, client := newMiniredisClient(t)

	b, err := NewRedisBackend(client)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Save(ctx, submission("1", "2024-01-01T00:00:00.000Z")))
	require.NoError(t, mr.Set(b.key("broken"), "{not json"))
	_, err = mr.Lpush(b.listKey, "broken")
	require.NoError(t, err)

	list, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(list))
}

func TestRedisBackend_ServerFailureIsUnavailable(t *testing.T) {
	mr, client := newMiniredisClient(t)

	b, err := NewRedisBackend(client)
	require.NoError(t, err)

	mr.SetError("LOADING Redis is loading the dataset in memory")

	ctx := context.Background()
	assert.ErrorIs(t, b.Save(ctx, submission("1", "2024-01-01T00:00:00.000Z")), ErrUnavailable)
	_, err = b.List(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, b.Ping(ctx), ErrUnavailable)
}

func TestFallbackBackend_RedisPrimaryGoesDown(t *testing.T) {
	mr, client := newMiniredisClient(t)

	primary, err := NewRedisBackend(client)
	require.NoError(t, err)

	logger, buf := newTestLogger()
	metrics := NewMetrics(prometheus.NewRegistry())
	b := NewFallbackBackend(primary, nil, logger, WithFallbackMetrics(metrics))

	ctx := context.Background()
	beforeOutage := submission("1", "2024-01-01T00:00:00.000Z")
	require.NoError(t, b.Save(ctx, beforeOutage))
	assert.Equal(t, 0, b.Fallback().Len())

	mr.Close()

	duringOutage := submission("2", "2024-01-02T00:00:00.000Z")
	require.NoError(t, b.Save(ctx, duringOutage))
	assert.Equal(t, 1, b.Fallback().Len())

	list, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Submission{*duringOutage}, list)
	assert.Error(t, b.Ping(ctx))

	assert.Contains(t, buf.String(), log.EventStorageFallback)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.fallbacks.WithLabelValues(BackendRedis, "save")))

	require.NoError(t, mr.Restart())

	list, err = b.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.Submission{*beforeOutage, *duringOutage}, list)
}

// Runs against a real server when REDIS_TEST_ADDR is set, e.g. REDIS_TEST_ADDR=localhost:6379.
func TestRedisBackend_RoundTripAgainstServer(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	b, err := NewRedisBackend(client)
	require.NoError(t, err)

	namespace := "test:" + uuid.NewString() + ":"
	b.keyPrefix = namespace + "submission:"
	b.listKey = namespace + "submissions:list"

	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, namespace+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
	})

	assertRoundTrip(t, client, b)
}
