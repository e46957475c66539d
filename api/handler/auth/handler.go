package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/api/common"
	"github.com/kinnrichard/image-uploader/api/middleware"
	"github.com/kinnrichard/image-uploader/database/models"
	authSvc "github.com/kinnrichard/image-uploader/internal/auth"
	"github.com/kinnrichard/image-uploader/internal/session"
	"github.com/kinnrichard/image-uploader/utils"
)

// Handler 注册、登录与登出处理器
type Handler struct {
	service  *authSvc.Service
	sessions *session.Manager
	cookie   middleware.SessionCookie
}

// NewHandler 创建认证处理器
func NewHandler(service *authSvc.Service, sessions *session.Manager, cookie middleware.SessionCookie) *Handler {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = sessions.TTL()
	}
	return &Handler{
		service:  service,
		sessions: sessions,
		cookie:   cookie,
	}
}

type credentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Register 注册并直接建立会话
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authSvc.ErrMissingCredentials):
			common.RespondError(c, http.StatusBadRequest, "Username and password are required")
		case errors.Is(err, authSvc.ErrPasswordTooLong):
			common.RespondError(c, http.StatusBadRequest, "Password must be at most 72 bytes")
		case errors.Is(err, authSvc.ErrDuplicateUsername):
			common.RespondError(c, http.StatusBadRequest, "Username already exists")
		default:
			utils.Logger().Error().Err(err).Msg("Registration failed")
			common.RespondError(c, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	if !h.startSession(c, user) {
		return
	}
	common.RespondSuccessMessage(c, "Registration successful", nil)
}

// Login 校验凭据并建立会话
func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authSvc.ErrMissingCredentials):
			common.RespondError(c, http.StatusBadRequest, "Username and password are required")
		case errors.Is(err, authSvc.ErrInvalidCredentials):
			common.RespondError(c, http.StatusUnauthorized, "Invalid username or password")
		default:
			utils.Logger().Error().Err(err).Msg("Login failed")
			common.RespondError(c, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	if !h.startSession(c, user) {
		return
	}
	common.RespondSuccessMessage(c, "Login successful", nil)
}

// Logout 销毁当前会话
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context(), middleware.GetSessionToken(c)); err != nil {
		utils.Logger().Error().Err(err).Msg("Failed to destroy session")
		common.RespondError(c, http.StatusInternalServerError, "Could not log out")
		return
	}

	h.cookie.Clear(c)
	common.RespondSuccessMessage(c, "Logged out successfully", nil)
}

// CurrentUser 返回当前登录状态
func (h *Handler) CurrentUser(c *gin.Context) {
	if _, ok := middleware.GetUserID(c); !ok {
		common.RespondSuccess(c, gin.H{"loggedIn": false})
		return
	}
	common.RespondSuccess(c, gin.H{
		"loggedIn": true,
		"username": middleware.GetUsername(c),
	})
}

// startSession 替换旧会话并写入 Cookie，失败时已写出错误响应
func (h *Handler) startSession(c *gin.Context, user *models.User) bool {
	ctx := c.Request.Context()

	if old := middleware.GetSessionToken(c); old != "" {
		_ = h.sessions.Destroy(ctx, old)
	}

	token, _, err := h.sessions.Create(ctx, user.ID, user.Username)
	if err != nil {
		utils.Logger().Error().Err(err).Uint("user_id", user.ID).Msg("Failed to create session")
		common.RespondError(c, http.StatusInternalServerError, "Could not create session")
		return false
	}

	h.cookie.Write(c, token)
	return true
}
