package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/kinnrichard/image-uploader/utils/pool"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
	Timeout  time.Duration
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// NewWebDAVStorage 创建 WebDAV 存储提供者，根集合不存在时自动创建
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	rootPath := normalizeRootPath(cfg.RootPath)

	client := gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	s := &WebDAVStorage{
		client:   client,
		rootPath: rootPath,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
	}

	// 验证连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if rootPath != "" {
		if err := s.mkdirAll(ctx, rootPath); err != nil {
			return nil, fmt.Errorf("webdav connection test failed: %w", err)
		}
	}
	if err := s.Health(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}

	return s, nil
}

func normalizeRootPath(rootPath string) string {
	rootPath = strings.Trim(rootPath, "/")
	if rootPath == "" {
		return ""
	}
	return "/" + rootPath
}

// call 在独立 goroutine 中执行阻塞的 WebDAV 请求，使其响应 ctx 取消
func call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(storagePath string) string {
	storagePath = strings.TrimLeft(storagePath, "/")
	if s.rootPath != "" {
		return s.rootPath + "/" + storagePath
	}
	return "/" + storagePath
}

// mkdirAll 逐级创建集合
func (s *WebDAVStorage) mkdirAll(ctx context.Context, dir string) error {
	if dir == "/" || dir == "." || dir == "" {
		return nil
	}

	currentPath := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		currentPath = currentPath + "/" + part

		p := currentPath
		err := call(ctx, func() error {
			return s.client.Mkdir(p, os.FileMode(0755))
		})
		if err != nil && !isCollectionExistsError(err) {
			return fmt.Errorf("failed to create directory %s: %w", currentPath, err)
		}
	}

	return nil
}

// isCollectionExistsError 判断是否为目录已存在的错误
func isCollectionExistsError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// 常见 WebDAV 服务器的 "目录已存在" 错误信息
	for _, s := range []string{"already exists", "Conflict", "409", "Method Not Allowed", "405"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, storagePath string, file io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !IsValidStoragePath(storagePath) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, storagePath)
	}

	fullPath := s.fullPath(storagePath)

	// 递归创建父目录
	if err := s.mkdirAll(ctx, path.Dir(fullPath)); err != nil {
		return fmt.Errorf("failed to ensure parent directory for %s: %w", storagePath, err)
	}

	err := call(ctx, func() error {
		return s.client.WriteStream(fullPath, file, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", storagePath, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件，内容读入内存以支持 Seek
func (s *WebDAVStorage) GetWithContext(ctx context.Context, storagePath string) (io.ReadSeeker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !IsValidStoragePath(storagePath) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, storagePath)
	}

	fullPath := s.fullPath(storagePath)

	var data bytes.Buffer
	err := call(ctx, func() error {
		stream, err := s.client.ReadStream(fullPath)
		if err != nil {
			return err
		}
		defer func() { _ = stream.Close() }()

		buf := pool.Get()
		defer pool.Put(buf)
		_, err = io.CopyBuffer(&data, stream, *buf)
		return err
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", storagePath, err)
	}

	return bytes.NewReader(data.Bytes()), nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, storagePath string) error {
	fullPath := s.fullPath(storagePath)
	return call(ctx, func() error {
		return s.client.Remove(fullPath)
	})
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, storagePath string) (bool, error) {
	fullPath := s.fullPath(storagePath)

	var exists bool
	err := call(ctx, func() error {
		_, err := s.client.Stat(fullPath)
		if err == nil {
			exists = true
			return nil
		}
		if gowebdav.IsErrNotFound(err) {
			return nil
		}
		return err
	})
	return exists, err
}

// List 列出根集合下的文件
func (s *WebDAVStorage) List(ctx context.Context) ([]string, error) {
	var names []string
	err := call(ctx, func() error {
		infos, err := s.client.ReadDir(s.listRoot())
		if err != nil {
			return err
		}
		for _, info := range infos {
			if info.IsDir() {
				continue
			}
			names = append(names, info.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list webdav collection: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *WebDAVStorage) listRoot() string {
	if s.rootPath == "" {
		return "/"
	}
	return s.rootPath
}

// Locate 返回文件的完整 URL
func (s *WebDAVStorage) Locate(storagePath string) string {
	return s.baseURL + s.fullPath(storagePath)
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// 如果 client 为 nil（测试场景），直接返回
	if s.client == nil {
		return nil
	}

	return call(ctx, func() error {
		_, err := s.client.ReadDir(s.listRoot())
		return err
	})
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	return "webdav"
}
