package images

import (
	"context"

	"github.com/kinnrichard/image-uploader/database/models"
)

// RepositoryInterface 图片仓库接口
type RepositoryInterface interface {
	// SaveImage 保存图片元数据，成功后回填 ID
	SaveImage(ctx context.Context, image *models.Image) error
	// ListImagesByUser 按上传时间倒序列出用户的图片
	ListImagesByUser(ctx context.Context, userID uint) ([]*models.Image, error)
	// GetImageByFilename 通过存储文件名获取图片
	GetImageByFilename(ctx context.Context, filename string) (*models.Image, error)
	// ListFilenames 列出全部存储文件名
	ListFilenames(ctx context.Context) ([]string, error)
}

var _ RepositoryInterface = (*Repository)(nil)
