package storage

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kinnrichard/image-uploader/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// MinioConfig MinIO 配置
type MinioConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// MinioStorage MinIO 对象存储实现，对象名即存储文件名
type MinioStorage struct {
	client     *minio.Client
	bucketName string
	endpoint   string
}

// mustGetSystemCertPool 获取系统证书池
func mustGetSystemCertPool() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load system cert pool")
		return x509.NewCertPool()
	}
	return pool
}

// newMinioTransport 构建 MinIO 使用的 HTTP 传输层
func newMinioTransport(useSSL bool) *http.Transport {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       time.Minute,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 10 * time.Second,
		DisableCompression:    true,
	}

	// SSL
	if useSSL {
		transport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		if f := os.Getenv("SSL_CERT_FILE"); f != "" {
			rootCAs := mustGetSystemCertPool()
			data, err := os.ReadFile(f)
			if err == nil {
				rootCAs.AppendCertsFromPEM(data)
			}
			transport.TLSClientConfig.RootCAs = rootCAs
		}
	}
	return transport
}

// NewMinioStorage 创建 MinIO 存储，桶不存在时自动创建
func NewMinioStorage(cfg MinioConfig) (*MinioStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("minio bucket name is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:    cfg.UseSSL,
		Transport: newMinioTransport(cfg.UseSSL),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket '%s' exists: %w", cfg.BucketName, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.BucketName, err)
		}
		log.Info().Str("bucket", cfg.BucketName).Msg("Successfully created bucket")
	}

	return &MinioStorage{
		client:     client,
		bucketName: cfg.BucketName,
		endpoint:   cfg.Endpoint,
	}, nil
}

// SaveWithContext 将文件上传到 MinIO
func (s *MinioStorage) SaveWithContext(ctx context.Context, identifier string, file io.Reader) error {
	if !IsValidStoragePath(identifier) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, identifier)
	}

	_, err := s.client.PutObject(ctx, s.bucketName, identifier, file, -1, minio.PutObjectOptions{
		ContentType: utils.ContentTypeByFilename(identifier),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s' to minio: %w", identifier, err)
	}

	return nil
}

// GetWithContext 获取对象流，minio.Object 实现了 io.ReadSeeker
func (s *MinioStorage) GetWithContext(ctx context.Context, identifier string) (io.ReadSeeker, error) {
	if !IsValidStoragePath(identifier) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, identifier)
	}

	// GetObject 是惰性的，先 Stat 才能区分不存在与其他错误
	if _, err := s.client.StatObject(ctx, s.bucketName, identifier, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, identifier)
		}
		return nil, fmt.Errorf("failed to stat object '%s': %w", identifier, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, identifier, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object stream from minio for '%s': %w", identifier, err)
	}

	return obj, nil
}

// DeleteWithContext 删除对象
func (s *MinioStorage) DeleteWithContext(ctx context.Context, identifier string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, identifier, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object '%s' from minio: %w", identifier, err)
	}

	return nil
}

// Exists 检查对象是否存在
func (s *MinioStorage) Exists(ctx context.Context, identifier string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, identifier, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List 列出桶根层级的全部对象
func (s *MinioStorage) List(ctx context.Context) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket '%s': %w", s.bucketName, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

// Locate 返回对象位置
func (s *MinioStorage) Locate(identifier string) string {
	return fmt.Sprintf("minio://%s/%s", s.bucketName, identifier)
}

// Health 检查桶是否可访问
func (s *MinioStorage) Health(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", s.bucketName)
	}
	return nil
}

// Name 返回存储名称
func (s *MinioStorage) Name() string {
	return "minio"
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
