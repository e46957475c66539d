package cache

import (
	"context"
	"time"

	"github.com/kinnrichard/image-uploader/cache/types"
)

// Provider 缓存提供者接口 - 依赖倒置的核心抽象
type Provider interface {
	// Set 设置缓存项，expiration 为 0 表示不过期
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error

	// Get 获取缓存项，未命中返回 ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error

	// Delete 删除缓存项
	Delete(ctx context.Context, key string) error

	// Exists 检查缓存项是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Health 检查缓存后端是否可用
	Health(ctx context.Context) error

	// Close 关闭缓存连接
	Close() error

	// Name 返回缓存提供者名称
	Name() string
}

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = types.ErrCacheMiss

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return types.IsCacheMiss(err)
}
