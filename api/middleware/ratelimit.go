package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/api/common"
	"github.com/kinnrichard/image-uploader/utils"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (c *clientLimiter) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *clientLimiter) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

type IPRateLimiter struct {
	rps        float64       // 每秒请求数
	burst      int           // 令牌桶的容量
	expireTime time.Duration // 过期时间
	limiterMap *sync.Map
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewIPRateLimiter Create new IP-based rate limits
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	if expireTime <= 0 {
		expireTime = 10 * time.Minute
	}
	limiter := &IPRateLimiter{
		rps:        rps,
		burst:      burst,
		expireTime: expireTime,
		limiterMap: &sync.Map{},
		stopChan:   make(chan struct{}),
	}

	// 启动后台清理 goroutine
	utils.SafeGo("ratelimit-cleanup", limiter.cleanupStaleClients)

	return limiter
}

// Middleware Return a Gin middleware handler
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getClientIP(c)
		now := time.Now()

		val, loaded := rl.limiterMap.Load(ip)
		if !loaded {
			val, _ = rl.limiterMap.LoadOrStore(ip, &clientLimiter{
				limiter:  rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
				lastSeen: now,
			})
		}

		client := val.(*clientLimiter)
		client.touch(now)

		if !client.limiter.Allow() {
			utils.LogIfDevf("[RateLimit] rejected %s %s from %s", c.Request.Method, c.Request.URL.Path, ip)
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}

		c.Next()
	}
}

// StopCleanup 停止后台清理，可重复调用
func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) cleanupStaleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			// 遍历 sync.Map，删除过期的条目
			rl.limiterMap.Range(func(key, value interface{}) bool {
				if value.(*clientLimiter).idleSince(now) > rl.expireTime {
					rl.limiterMap.Delete(key)
				}
				return true
			})
		case <-rl.stopChan:
			return
		}
	}
}

// getClientIP 客户端地址，转发头仅在来自受信代理时生效
func getClientIP(c *gin.Context) string {
	return c.ClientIP()
}
