package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/api/common"
	handlerAuth "github.com/kinnrichard/image-uploader/api/handler/auth"
	handlerImages "github.com/kinnrichard/image-uploader/api/handler/images"
	"github.com/kinnrichard/image-uploader/api/handler/pages"
	"github.com/kinnrichard/image-uploader/api/middleware"
	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/internal/auth"
	"github.com/kinnrichard/image-uploader/internal/session"
	imageSvc "github.com/kinnrichard/image-uploader/internal/services/image"
	"github.com/kinnrichard/image-uploader/storage"
	"github.com/kinnrichard/image-uploader/utils"
)

// uploadQueueTimeout 上传请求等待并发名额的最长时间
const uploadQueueTimeout = 10 * time.Second

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Config        *config.Config
	Database      database.Provider
	Sessions      *session.Manager
	Storage       storage.Provider
	AuthService   *auth.Service
	UploadService *imageSvc.UploadService
}

// NewRouter 创建 gin 引擎并注册所有路由，返回的 cleanup 用于停止限流器后台清理
func NewRouter(deps *RouterDependencies) (*gin.Engine, func()) {
	cfg := deps.Config
	router := gin.New()

	metrics := middleware.NewRequestMetrics()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	_ = router.SetTrustedProxies(nil)

	router.MaxMultipartMemory = cfg.UploadMaxBytes()

	concurrencyLimiter := middleware.NewConcurrencyLimiter(cfg.MaxConcurrency)
	router.Use(concurrencyLimiter.Middleware())

	// 上传单独限流，排队等待而非立即拒绝
	uploadLimiter := middleware.NewConcurrencyLimiter(uploadConcurrency(cfg.MaxConcurrency))

	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
	}

	sessionCookie := middleware.SessionCookie{
		Name:    cfg.SessionCookieName,
		Domain:  utils.ExtractCookieDomain(cfg.ServerDomain),
		Secure:  cfg.SessionCookieSecure,
		MaxAge:  deps.Sessions.TTL(),
		Rolling: cfg.SessionRolling,
	}
	router.Use(middleware.LoadSession(deps.Sessions, sessionCookie))

	registerBasicRoutes(router, deps, metrics)

	authHandler := handlerAuth.NewHandler(deps.AuthService, deps.Sessions, sessionCookie)
	imageHandler := handlerImages.NewHandler(deps.UploadService)

	router.GET("/", pages.Index)
	router.GET("/uploads/:filename", imageHandler.ServeImage) // GET /uploads/{filename}

	apiGroup := router.Group("/api")
	apiGroup.Use(func(context *gin.Context) { // 所有API禁止缓存
		context.Header("Cache-Control", "no-store")
		context.Next()
	})
	{
		credentialGroup := apiGroup.Group("")
		credentialGroup.Use(authRateLimiter.Middleware())
		{
			credentialGroup.POST("/register", authHandler.Register) // POST /api/register
			credentialGroup.POST("/login", authHandler.Login)       // POST /api/login
		}

		apiGroup.GET("/user", authHandler.CurrentUser) // GET /api/user

		sessionGroup := apiGroup.Group("")
		sessionGroup.Use(middleware.RequireSession())
		{
			sessionGroup.POST("/logout", authHandler.Logout) // POST /api/logout
			sessionGroup.POST("/upload",
				uploadLimiter.MiddlewareWithBlock(uploadQueueTimeout),
				imageHandler.UploadImage) // POST /api/upload
			sessionGroup.GET("/images", imageHandler.ListImages) // GET /api/images
		}
	}

	return router, cleanup
}

// registerBasicRoutes 注册健康检查、版本与指标路由
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies, metrics *middleware.RequestMetrics) {
	healthHandler := NewHealthHandler(deps.Database, deps.Sessions, deps.Storage)
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", func(context *gin.Context) {
		context.JSON(http.StatusOK, metrics.Snapshot())
	})
}

// uploadConcurrency 上传并发占全局的四分之一，至少为 1
// total 非正数时按 NewConcurrencyLimiter 的默认值 100 计算
func uploadConcurrency(total int64) int64 {
	if total <= 0 {
		total = 100
	}
	return max(total/4, 1)
}
