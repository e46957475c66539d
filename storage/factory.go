package storage

import (
	"fmt"

	"github.com/kinnrichard/image-uploader/config"
	"github.com/rs/zerolog/log"
)

// NewProvider 按 storage_type 配置创建存储提供者
func NewProvider(cfg *config.Config) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.StorageType {
	case "local", "":
		provider, err = NewLocalStorage(cfg.UploadDir)
	case "minio":
		provider, err = NewMinioStorage(MinioConfig{
			Endpoint:        cfg.MinioEndpoint,
			AccessKeyID:     cfg.MinioAccessKeyID,
			SecretAccessKey: cfg.MinioSecretAccessKey,
			BucketName:      cfg.MinioBucketName,
			UseSSL:          cfg.MinioUseSSL,
		})
	case "webdav":
		provider, err = NewWebDAVStorage(WebDAVConfig{
			URL:      cfg.WebDAVURL,
			Username: cfg.WebDAVUsername,
			Password: cfg.WebDAVPassword,
			RootPath: cfg.WebDAVRootPath,
			Timeout:  cfg.WebDAVTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.StorageType)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.StorageType, err)
	}

	log.Info().Str("storage", provider.Name()).Msg("Storage provider initialized")
	return provider, nil
}
