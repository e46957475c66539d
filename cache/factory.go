package cache

import (
	"fmt"

	"github.com/kinnrichard/image-uploader/cache/memory"
	"github.com/kinnrichard/image-uploader/cache/redis"
	"github.com/kinnrichard/image-uploader/config"
	"github.com/rs/zerolog/log"
)

// NewProvider 按 session_store 配置创建缓存提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.SessionStore {
	case "memory", "":
		provider, err := memory.NewMemory(memory.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create memory cache: %w", err)
		}
		log.Info().Msg("Using in-memory session store")
		return provider, nil

	case "redis":
		provider, err := redis.NewRedisFromConfig(&redis.Config{
			Address:      cfg.CacheRedisAddr,
			Password:     cfg.CacheRedisPassword,
			DB:           cfg.CacheRedisDB,
			PoolSize:     10,
			MinIdleConns: 2,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		log.Info().Str("addr", cfg.CacheRedisAddr).Msg("Using redis session store")
		return provider, nil

	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.SessionStore)
	}
}
