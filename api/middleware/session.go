package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/api/common"
	"github.com/kinnrichard/image-uploader/internal/session"
	"github.com/kinnrichard/image-uploader/utils"
)

const (
	ContextUserIDKey       = "user_id"
	ContextUsernameKey     = "username"
	ContextSessionTokenKey = "session_token"
)

// SessionReader 按令牌读取会话
type SessionReader interface {
	Get(ctx context.Context, token string) (*session.Session, error)
}

// SessionCookie 会话 Cookie 参数
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
	MaxAge time.Duration
	// Rolling 为 true 时每次请求重新下发 Cookie，与服务端滚动续期保持一致
	Rolling bool
}

// Write 写入会话 Cookie
func (sc SessionCookie) Write(c *gin.Context, token string) {
	sc.set(c, token, int(sc.MaxAge.Seconds()))
}

// Clear 将 MaxAge 设置为 -1 让浏览器删除 Cookie
func (sc SessionCookie) Clear(c *gin.Context) {
	sc.set(c, "", -1)
}

func (sc SessionCookie) set(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sc.Name,
		Value:    value,
		Path:     "/",
		Domain:   sc.Domain,
		MaxAge:   maxAge,
		Secure:   sc.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoadSession 从 Cookie 读取会话并写入上下文，没有有效会话时按匿名继续
func LoadSession(sessions SessionReader, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookie.Name)
		if err != nil || token == "" {
			c.Next()
			return
		}

		sess, err := sessions.Get(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				utils.Logger().Warn().Err(err).Msg("Session lookup failed, treating request as anonymous")
			}
			c.Next()
			return
		}

		if cookie.Rolling {
			cookie.Write(c, token)
		}

		c.Set(ContextSessionTokenKey, token)
		c.Set(ContextUserIDKey, sess.UserID)
		c.Set(ContextUsernameKey, sess.Username)
		c.Next()
	}
}

// RequireSession 仅允许已登录请求通过
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		c.Next()
	}
}

// GetUserID 获取当前会话的用户 ID
func GetUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// GetUsername 获取当前会话的用户名
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextUsernameKey)
}

// GetSessionToken 获取当前会话令牌
func GetSessionToken(c *gin.Context) string {
	return c.GetString(ContextSessionTokenKey)
}
