package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/concordtech/contact-api/internal/models"
	"github.com/concordtech/contact-api/pkg/constants"
	"github.com/go-redis/redis/v8"
)

// RedisBackend stores each submission as JSON under submission:<id> and records ids in
// submissions:list, newest first. Both writes go through one MULTI/EXEC so a value is never
// stored without its index entry.
type RedisBackend struct {
	client    *redis.Client
	keyPrefix string
	listKey   string
}

func NewRedisBackend(client *redis.Client) (*RedisBackend, error) {
	if client == nil {
		return nil, unavailable(BackendRedis, "init", errors.New("redis client is not configured"))
	}

	return &RedisBackend{
		client:    client,
		keyPrefix: constants.SubmissionKeyPrefix,
		listKey:   constants.SubmissionListKey,
	}, nil
}

func (b *RedisBackend) Name() string {
	return BackendRedis
}

func (b *RedisBackend) key(id string) string {
	return b.keyPrefix + id
}

func (b *RedisBackend) Save(ctx context.Context, submission *models.Submission) error {
	if err := checkSubmission(submission); err != nil {
		return err
	}

	payload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("%s encode: %w", BackendRedis, err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.key(submission.ID), payload, 0)
		pipe.LPush(ctx, b.listKey, submission.ID)
		return nil
	})
	if err != nil {
		return unavailable(BackendRedis, "save", err)
	}

	return nil
}

// List skips ids whose value is missing or undecodable; the index may outlive a value that was
// removed by hand.
func (b *RedisBackend) List(ctx context.Context) ([]models.Submission, error) {
	ids, err := b.client.LRange(ctx, b.listKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(BackendRedis, "list", err)
	}

	if len(ids) == 0 {
		return []models.Submission{}, nil
	}

	seen := make(map[string]struct{}, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, b.key(id))
	}

	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(BackendRedis, "list", err)
	}

	submissions := make([]models.Submission, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var submission models.Submission
		if err := json.Unmarshal([]byte(raw), &submission); err != nil {
			continue
		}

		submissions = append(submissions, submission)
	}

	return submissions, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return unavailable(BackendRedis, "ping", err)
	}
	return nil
}

// The Redis client is owned by the ApplicationConfig and closed there
func (b *RedisBackend) Close() error {
	return nil
}
