package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kinnrichard/image-uploader/database/models"
	"github.com/kinnrichard/image-uploader/database/repo/accounts"
	"github.com/kinnrichard/image-uploader/utils"
	cryptopackage "github.com/kinnrichard/image-uploader/utils/crypto"
)

// maxPasswordBytes bcrypt 只处理前 72 字节
const maxPasswordBytes = 72

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrStore              = errors.New("account store failure")
)

// UserStore 账户持久化接口，由 accounts.Repository 实现
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service 注册与登录服务
type Service struct {
	users     UserStore
	hasher    *cryptopackage.Hasher
	dummyHash string
}

// NewService 创建认证服务
func NewService(users UserStore, hasher *cryptopackage.Hasher) (*Service, error) {
	// 用户不存在时仍比较一次哈希，使两条失败路径耗时一致
	dummy, err := hasher.GenerateFromPassword("image-uploader-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		dummyHash: dummy,
	}, nil
}

// Register 注册新用户，返回的用户不含密码哈希
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := s.hasher.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	user := &models.User{
		Username: username,
		Password: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, accounts.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	utils.Logger().Info().
		Uint("user_id", user.ID).
		Str("username", utils.SanitizeLogUsername(user.Username)).
		Msg("User registered")

	user.Password = ""
	return user, nil
}

// Login 校验凭据，用户不存在与密码错误返回同一个 ErrInvalidCredentials
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.Password
	}

	ok, err := s.hasher.ComparePasswordAndHash(password, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if user == nil || !ok {
		utils.LogIfDevf("Login rejected for %s", utils.SanitizeLogUsername(username))
		return nil, ErrInvalidCredentials
	}

	user.Password = ""
	return user, nil
}
