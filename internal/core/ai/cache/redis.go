package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "ingredient-analyzer:reply:"

// RedisStore 以 Redis 保存分類器回覆；Redis 錯誤一律視為未命中
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewRedisStore 創建 Redis 快取並測試連線
func NewRedisStore(ctx context.Context, cfg *config.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	common.LogInfo("Redis 快取已連線", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.TTL))
	return newRedisStore(client, cfg.TTL), nil
}

func newRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get 獲取緩存
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.errors.Add(1)
			common.LogWarn("Redis 讀取失敗", zap.Error(err))
		}
		s.misses.Add(1)
		common.LogCacheMiss(BackendRedis)
		return "", false
	}
	s.hits.Add(1)
	common.LogCacheHit(BackendRedis)
	return value, true
}

// Set 設置緩存
func (s *RedisStore) Set(ctx context.Context, key, value string) {
	if err := s.client.Set(ctx, keyPrefix+key, value, s.ttl).Err(); err != nil {
		s.errors.Add(1)
		common.LogWarn("Redis 寫入失敗", zap.Error(err))
	}
}

// Stats 快取統計
func (s *RedisStore) Stats() map[string]interface{} {
	return map[string]interface{}{
		"backend": BackendRedis,
		"hits":    s.hits.Load(),
		"misses":  s.misses.Load(),
		"errors":  s.errors.Load(),
	}
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
