package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound 存储中不存在该文件
	ErrNotFound = errors.New("file not found in storage")
	// ErrInvalidPath 存储路径不合法
	ErrInvalidPath = errors.New("invalid storage path")
)

// Provider 存储提供者接口 - 依赖倒置的核心抽象
// 定义了存储层的基本操作，所有存储实现必须遵循此接口
type Provider interface {
	// SaveWithContext 保存文件到存储
	SaveWithContext(ctx context.Context, identifier string, file io.Reader) error

	// GetWithContext 从存储获取文件，不存在时返回 ErrNotFound
	GetWithContext(ctx context.Context, identifier string) (io.ReadSeeker, error)

	// DeleteWithContext 从存储删除文件
	DeleteWithContext(ctx context.Context, identifier string) error

	// Exists 检查文件是否存在
	Exists(ctx context.Context, identifier string) (bool, error)

	// List 列出存储根目录下的全部文件名
	List(ctx context.Context) ([]string, error)

	// Locate 返回文件在后端中的位置，用于日志
	Locate(identifier string) string

	// Health 检查存储健康状态
	Health(ctx context.Context) error

	// Name 返回存储名称
	Name() string
}
