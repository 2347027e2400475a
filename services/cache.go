package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"karyasiddhi-ai/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheService wraps the Redis client used for event pub/sub. A service
// without a client accepts every call and does nothing.
type CacheService struct {
	client *redis.Client
}

// NewCacheService connects to Redis, pinging up to attempts times. On
// failure it still returns a usable, disconnected service.
func NewCacheService(ctx context.Context, cfg config.RedisConfig, attempts int, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		logger.Warn("redis ping failed",
			zap.Int("attempt", i+1), zap.Int("attempts", attempts), zap.Error(lastErr))

		select {
		case <-ctx.Done():
			client.Close()
			return &CacheService{}, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	client.Close()
	return &CacheService{}, fmt.Errorf("redis ping failed after %d attempts: %w", attempts, lastErr)
}

func (s *CacheService) Client() *redis.Client {
	return s.client
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

func (s *CacheService) Publish(ctx context.Context, channel string, message any) error {
	if !s.Available() {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !s.Available() {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if !s.Available() {
		return nil
	}
	return s.client.Close()
}
