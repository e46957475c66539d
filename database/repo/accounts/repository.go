package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/database/models"
	"gorm.io/gorm"
)

// ErrDuplicateUsername 用户名已被占用
var ErrDuplicateUsername = errors.New("username already exists")

// Repository 账户仓库 - 封装所有账户相关的数据库操作
type Repository struct {
	db database.Provider
}

// NewRepository 创建新的账户仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{db: db}
}

// CreateUser 创建用户，成功后 user.ID 被回填
// 用户名唯一约束冲突时返回 ErrDuplicateUsername
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername 通过用户名获取用户，不存在时返回 (nil, nil)
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}
