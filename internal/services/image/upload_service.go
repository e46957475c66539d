package image

import (
	"context"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"

	_ "golang.org/x/image/webp"

	"github.com/kinnrichard/image-uploader/database/models"
	"github.com/kinnrichard/image-uploader/database/repo/images"
	"github.com/kinnrichard/image-uploader/storage"
	"github.com/kinnrichard/image-uploader/utils"
	"github.com/kinnrichard/image-uploader/utils/generator"
)

// DefaultMaxUploadBytes 默认单文件上限 5MB
const DefaultMaxUploadBytes int64 = 5 << 20

// UploadService 图片上传服务
type UploadService struct {
	repo     images.RepositoryInterface
	storage  storage.Provider
	names    *generator.FilenameGenerator
	maxBytes int64
}

// NewUploadService 创建上传服务
func NewUploadService(repo images.RepositoryInterface, storageProvider storage.Provider, maxBytes int64) *UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadService{
		repo:     repo,
		storage:  storageProvider,
		names:    generator.NewFilenameGenerator(),
		maxBytes: maxBytes,
	}
}

// MaxBytes 返回单文件大小上限
func (s *UploadService) MaxBytes() int64 {
	return s.maxBytes
}

// AcceptUpload 校验声明的类型与大小，返回规范化后的 MIME 类型
// 类型先于大小检查，同时违反两条时报告类型错误
func (s *UploadService) AcceptUpload(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil {
		return "", ErrNoFile
	}

	mimeType := utils.NormalizeMediaType(fileHeader.Header.Get("Content-Type"))
	if !utils.IsAllowedImageType(mimeType) {
		return "", ErrUnsupportedType
	}

	if fileHeader.Size > s.maxBytes {
		return "", ErrTooLarge
	}

	return mimeType, nil
}

// StoreUpload 写入文件并插入元数据
// 元数据插入失败时文件保留在存储中，由 clean 命令事后清理
func (s *UploadService) StoreUpload(ctx context.Context, ownerID uint, fileHeader *multipart.FileHeader) (*models.Image, error) {
	mimeType, err := s.AcceptUpload(fileHeader)
	if err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open upload: %v", ErrFilesystem, err)
	}
	defer func() { _ = file.Close() }()

	width, height := decodeDimensions(file)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: failed to rewind upload: %v", ErrFilesystem, err)
	}

	filename := s.names.Generate(utils.ResolveExtension(fileHeader.Filename, mimeType))
	storagePath := s.names.StoragePath(filename)

	if err := s.storage.SaveWithContext(ctx, storagePath, file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFilesystem, err)
	}

	img := &models.Image{
		UserID:       ownerID,
		Filename:     filename,
		OriginalName: fileHeader.Filename,
		FilePath:     storagePath,
		FileSize:     fileHeader.Size,
		MimeType:     mimeType,
		Width:        width,
		Height:       height,
	}

	if err := s.repo.SaveImage(ctx, img); err != nil {
		utils.Logger().Warn().
			Err(err).
			Uint("user_id", ownerID).
			Str("filename", filename).
			Str("path", s.storage.Locate(storagePath)).
			Msg("orphaned upload: file stored but metadata insert failed")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	utils.LogIfDevf("[Upload] user %d stored %s (%d bytes)", ownerID, filename, img.FileSize)
	return img, nil
}

// ListImages 列出用户自己的图片，最新在前
func (s *UploadService) ListImages(ctx context.Context, ownerID uint) ([]*models.Image, error) {
	list, err := s.repo.ListImagesByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return list, nil
}

// OpenImage 打开已存储的图片，返回内容与 Content-Type
// 没有元数据记录的文件（如孤儿文件）视为不存在
func (s *UploadService) OpenImage(ctx context.Context, filename string) (io.ReadSeeker, string, error) {
	if !storage.IsValidStoragePath(filename) {
		return nil, "", ErrNotFound
	}

	record, err := s.repo.GetImageByFilename(ctx, filename)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	if record == nil {
		return nil, "", ErrNotFound
	}

	rs, err := s.storage.GetWithContext(ctx, s.names.StoragePath(filename))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: %v", ErrFilesystem, err)
	}

	contentType := record.MimeType
	if contentType == "" {
		contentType = utils.ContentTypeByFilename(filename)
	}
	return rs, contentType, nil
}

// decodeDimensions 读取图片尺寸，无法解析时返回 0
func decodeDimensions(r io.Reader) (int, int) {
	cfg, _, err := stdimage.DecodeConfig(r)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
