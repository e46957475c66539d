package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(rl *IPRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	_ = router.SetTrustedProxies(nil)
	router.Use(rl.Middleware())
	router.POST("/api/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func doLogin(router *gin.Engine, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

// TestIPRateLimiter_BurstExhausted 超过突发容量后返回 429
func TestIPRateLimiter_BurstExhausted(t *testing.T) {
	rl := NewIPRateLimiter(0.001, 2, time.Minute)
	defer rl.StopCleanup()
	router := newRateLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, doLogin(router, "10.0.0.1:1234", ""))
	assert.Equal(t, http.StatusOK, doLogin(router, "10.0.0.1:1234", ""))
	assert.Equal(t, http.StatusTooManyRequests, doLogin(router, "10.0.0.1:1234", ""))

	// 其他地址不受影响
	assert.Equal(t, http.StatusOK, doLogin(router, "10.0.0.2:1234", ""))
}

// TestIPRateLimiter_IgnoresUntrustedForwardedFor 未受信的转发头不能绕过限流
func TestIPRateLimiter_IgnoresUntrustedForwardedFor(t *testing.T) {
	rl := NewIPRateLimiter(0.001, 1, time.Minute)
	defer rl.StopCleanup()
	router := newRateLimitedRouter(rl)

	assert.Equal(t, http.StatusOK, doLogin(router, "10.0.0.1:1234", "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, doLogin(router, "10.0.0.1:1234", "2.2.2.2"))
}

// TestIPRateLimiter_StopCleanupIdempotent 重复停止不会 panic
func TestIPRateLimiter_StopCleanupIdempotent(t *testing.T) {
	rl := NewIPRateLimiter(1, 1, 0)
	assert.NotPanics(t, func() {
		rl.StopCleanup()
		rl.StopCleanup()
	})
}
