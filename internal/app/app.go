package app

import (
	"fmt"
	"time"

	"github.com/kinnrichard/image-uploader/cache"
	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/database/repo/accounts"
	"github.com/kinnrichard/image-uploader/database/repo/images"
	"github.com/kinnrichard/image-uploader/internal/auth"
	"github.com/kinnrichard/image-uploader/internal/session"
	imageSvc "github.com/kinnrichard/image-uploader/internal/services/image"
	"github.com/kinnrichard/image-uploader/storage"
	"github.com/kinnrichard/image-uploader/utils"
	cryptopackage "github.com/kinnrichard/image-uploader/utils/crypto"
)

// DefaultOrphanMinAge 比该时长更新的文件不会被视为孤儿，避免误删正在上传的文件
const DefaultOrphanMinAge = time.Hour

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	cacheProvider   cache.Provider
	storage         storage.Provider

	AccountsRepo *accounts.Repository
	ImagesRepo   *images.Repository

	sessions      *session.Manager
	authService   *auth.Service
	uploadService *imageSvc.UploadService
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 初始化全部依赖，serve 命令使用
func (c *Container) Init() error {
	if err := c.InitDatabase(); err != nil {
		return err
	}
	if err := c.InitStorage(); err != nil {
		return err
	}
	if err := c.InitServices(); err != nil {
		return err
	}
	return nil
}

// InitDatabase 连接数据库、建表并创建仓库
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing DI container...")

	if err := c.initDatabaseFactory(); err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	if err := c.databaseFactory.AutoMigrate(); err != nil {
		return err
	}

	c.initRepositories()

	utils.LogIfDev("DI container initialized successfully")
	return nil
}

// InitStorage 按 storage_type 创建存储后端
func (c *Container) InitStorage() error {
	provider, err := storage.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storage = provider
	utils.LogIfDevf("Storage provider %s initialized", provider.Name())
	return nil
}

// InitServices 创建会话存储与业务服务
func (c *Container) InitServices() error {
	provider, err := cache.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	c.cacheProvider = provider
	c.sessions = session.NewManager(provider, c.config.SessionTTL, c.config.SessionRolling)

	authService, err := auth.NewService(c.AccountsRepo, cryptopackage.NewHasher(c.config.BcryptCost))
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}
	c.authService = authService

	c.uploadService = imageSvc.NewUploadService(c.ImagesRepo, c.storage, c.config.UploadMaxBytes())

	utils.LogIfDev("Services initialized")
	return nil
}

// initRepositories 初始化所有仓库
func (c *Container) initRepositories() {
	provider := c.databaseFactory.GetProvider()
	c.AccountsRepo = accounts.NewRepository(provider)
	c.ImagesRepo = images.NewRepository(provider)
	utils.LogIfDev("Repositories initialized")
}

// initDatabaseFactory 初始化数据库工厂
func (c *Container) initDatabaseFactory() error {
	factory, err := database.NewFactory(c.config)
	if err != nil {
		return err
	}
	c.databaseFactory = factory
	utils.LogIfDev("Database factory initialized")
	return nil
}

// GetDatabaseProvider 获取数据库提供者
func (c *Container) GetDatabaseProvider() database.Provider {
	if c.databaseFactory == nil {
		return nil
	}
	return c.databaseFactory.GetProvider()
}

// GetStorage 获取存储后端
func (c *Container) GetStorage() storage.Provider {
	return c.storage
}

// GetSessions 获取会话管理器
func (c *Container) GetSessions() *session.Manager {
	return c.sessions
}

// GetAuthService 获取认证服务
func (c *Container) GetAuthService() *auth.Service {
	return c.authService
}

// GetUploadService 获取上传服务
func (c *Container) GetUploadService() *imageSvc.UploadService {
	return c.uploadService
}

// NewOrphanScanner 创建孤儿文件扫描器，需先完成 InitDatabase 与 InitStorage
func (c *Container) NewOrphanScanner(minAge time.Duration) *imageSvc.OrphanScanner {
	return imageSvc.NewOrphanScanner(c.ImagesRepo, c.storage, minAge)
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// Close 关闭所有服务
func (c *Container) Close() error {
	utils.LogIfDev("Closing DI container...")

	if c.cacheProvider != nil {
		if err := c.cacheProvider.Close(); err != nil {
			utils.LogIfDevf("Error closing session store: %v", err)
		}
	}

	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			utils.LogIfDevf("Error closing database factory: %v", err)
			return err
		}
	}

	utils.LogIfDev("DI container closed")
	return nil
}
