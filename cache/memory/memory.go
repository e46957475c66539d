package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/kinnrichard/image-uploader/cache/types"
)

// ErrSetRejected ristretto 在缓冲区满或准入策略拒绝时会丢弃写入
var ErrSetRejected = errors.New("memory cache rejected the write")

// Memory 内存缓存实现
type Memory struct {
	client *ristretto.Cache
}

// Config 内存缓存配置
type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// DefaultConfig 默认配置：64MB 容量
func DefaultConfig() Config {
	return Config{
		NumCounters: 1_000_000,
		MaxCost:     64 << 20,
		BufferItems: 64,
		Metrics:     false,
	}
}

// NewMemory 创建新的内存缓存提供者
func NewMemory(config Config) (*Memory, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: config.NumCounters,
		MaxCost:     config.MaxCost,
		BufferItems: config.BufferItems,
		Metrics:     config.Metrics,
	})

	if err != nil {
		return nil, err
	}

	return &Memory{
		client: client,
	}, nil
}

// Set 设置缓存项，值以 JSON 字节存储，读取时得到独立副本
func (m *Memory) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, ok := value.([]byte)
	if !ok {
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}
	}

	if !m.client.SetWithTTL(key, data, int64(len(data)), expiration) {
		return ErrSetRejected
	}
	// 等待值被实际设置
	m.client.Wait()
	return nil
}

// Get 获取缓存项
func (m *Memory) Get(ctx context.Context, key string, dest interface{}) error {
	value, found := m.client.Get(key)
	if !found {
		return types.ErrCacheMiss
	}

	data, ok := value.([]byte)
	if !ok {
		return types.ErrCacheMiss
	}

	if raw, ok := dest.(*[]byte); ok {
		*raw = append([]byte(nil), data...)
		return nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 删除缓存项
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.client.Del(key)
	return nil
}

// Exists 检查缓存项是否存在
func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, found := m.client.Get(key)
	return found, nil
}

// Health 内存缓存始终可用
func (m *Memory) Health(ctx context.Context) error {
	return nil
}

// Close 关闭缓存连接
func (m *Memory) Close() error {
	m.client.Close()
	return nil
}

// Name 返回缓存提供者名称
func (m *Memory) Name() string {
	return "memory"
}
