package core

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/internal/session"
	"github.com/kinnrichard/image-uploader/storage"
)

const healthCheckTimeout = 3 * time.Second

var startTime = time.Now()

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db       database.Provider
	sessions *session.Manager
	storage  storage.Provider
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(db database.Provider, sessions *session.Manager, storageProvider storage.Provider) *HealthHandler {
	return &HealthHandler{
		db:       db,
		sessions: sessions,
		storage:  storageProvider,
	}
}

// Handle 任一依赖异常时返回 503
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{
		"database":      checkDatabaseHealth(h.db),
		"session_store": checkSessionHealth(ctx, h.sessions),
		"storage":       checkStorageHealth(ctx, h.storage),
	}

	status := "ok"
	httpStatus := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"version": config.Version,
		"checks":  checks,
	})
}

func checkDatabaseHealth(provider database.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Ping(); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkSessionHealth(ctx context.Context, sessions *session.Manager) string {
	if sessions == nil {
		return "not initialized"
	}
	if err := sessions.Health(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
