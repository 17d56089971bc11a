package cache

import (
	"context"
	"fmt"

	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"
)

// 快取後端名稱
const (
	BackendMemory = config.CacheBackendMemory
	BackendRedis  = config.CacheBackendRedis
)

// Store 分類器回覆快取
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Stats() map[string]interface{}
	Close() error
}

// New 依設定建立快取；停用時回傳 nil
func New(ctx context.Context, cfg *config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}
	switch cfg.Backend {
	case BackendRedis:
		store, err := NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory, "":
		return NewManager(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
