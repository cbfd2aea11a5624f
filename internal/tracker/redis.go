package tracker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nguyentantai21042004/transcript-flow/internal/config"
	"github.com/nguyentantai21042004/transcript-flow/internal/logger"
)

type redisTracker struct {
	client  *redis.Client
	hashKey string
	logger  logger.Logger
}

// New creates a Tracker. Without a configured Redis address it returns a
// no-op tracker and every video is treated as new.
func New(ctx context.Context, cfg config.TrackerConfig, log logger.Logger) (Tracker, error) {
	if cfg.RedisAddr == "" {
		return noopTracker{}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &redisTracker{client: client, hashKey: cfg.HashKey, logger: log}, nil
}

func (t *redisTracker) Indexed(ctx context.Context, videoID, checksum string) (bool, error) {
	stored, err := t.client.HGet(ctx, t.hashKey, videoID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read tracker entry: %w", err)
	}
	return stored == checksum, nil
}

func (t *redisTracker) Mark(ctx context.Context, videoID, checksum string) error {
	if err := t.client.HSet(ctx, t.hashKey, videoID, checksum).Err(); err != nil {
		return fmt.Errorf("write tracker entry: %w", err)
	}
	return nil
}

func (t *redisTracker) Close() error {
	return t.client.Close()
}

type noopTracker struct{}

func (noopTracker) Indexed(ctx context.Context, videoID, checksum string) (bool, error) {
	return false, nil
}

func (noopTracker) Mark(ctx context.Context, videoID, checksum string) error {
	return nil
}

func (noopTracker) Close() error {
	return nil
}
