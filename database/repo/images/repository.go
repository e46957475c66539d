package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/database/models"
	"gorm.io/gorm"
)

// Repository 图片仓库 - 封装所有图片相关的数据库操作
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的图片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// SaveImage 保存图片
func (r *Repository) SaveImage(ctx context.Context, image *models.Image) error {
	return r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("failed to create image in transaction: %w", err)
		}
		return nil
	})
}

// ListImagesByUser 按 uploaded_at 倒序列出用户图片，同一时间戳按 id 倒序
func (r *Repository) ListImagesByUser(ctx context.Context, userID uint) ([]*models.Image, error) {
	images := make([]*models.Image, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Order("id DESC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images for user %d: %w", userID, err)
	}
	return images, nil
}

// GetImageByFilename 通过存储文件名获取图片，不存在时返回 (nil, nil)
func (r *Repository) GetImageByFilename(ctx context.Context, filename string) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &image, nil
}

// ListFilenames 列出全部存储文件名，用于孤儿文件检测
func (r *Repository) ListFilenames(ctx context.Context) ([]string, error) {
	var filenames []string
	if err := r.db.WithContext(ctx).Model(&models.Image{}).Pluck("filename", &filenames).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch image filenames: %w", err)
	}
	return filenames, nil
}
