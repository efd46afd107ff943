package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BerylCAtieno/docvault-api/internal/config"
	"github.com/BerylCAtieno/docvault-api/internal/models"

	"github.com/redis/go-redis/v9"
)

const historyKey = "docvault:intent:history"

type RedisRecorder struct {
	client *redis.Client
	key    string
	size   int
}

func NewRedisRecorder(ctx context.Context, cfg *config.Config) (*RedisRecorder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisRecorder(client, cfg.IntentHistorySize), nil
}

func newRedisRecorder(client *redis.Client, size int) *RedisRecorder {
	if size <= 0 {
		size = 100
	}
	return &RedisRecorder{client: client, key: historyKey, size: size}
}

func (r *RedisRecorder) Record(ctx context.Context, result *models.DispatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch result: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, r.key, data)
		pipe.LTrim(ctx, r.key, 0, int64(r.size-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record intent history: %w", err)
	}
	return nil
}

func (r *RedisRecorder) List(ctx context.Context, limit int) ([]models.DispatchResult, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	raw, err := r.client.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read intent history: %w", err)
	}

	out := make([]models.DispatchResult, 0, len(raw))
	for _, item := range raw {
		var res models.DispatchResult
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
