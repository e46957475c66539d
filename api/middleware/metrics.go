package middleware

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestMetrics 进程内请求计数
type RequestMetrics struct {
	requests   atomic.Int64
	durationMs atomic.Int64
	errors     atomic.Int64
	uploads    atomic.Int64
}

// NewRequestMetrics 创建请求计数器
func NewRequestMetrics() *RequestMetrics {
	return &RequestMetrics{}
}

// Middleware 响应完成后记录耗时与状态
func (m *RequestMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		m.requests.Add(1)
		m.durationMs.Add(time.Since(start).Milliseconds())
		if c.Writer.Status() >= 500 {
			m.errors.Add(1)
		}
		if c.FullPath() == "/api/upload" && c.Writer.Status() < 300 {
			m.uploads.Add(1)
		}
	}
}

// Snapshot 获取当前指标
func (m *RequestMetrics) Snapshot() gin.H {
	count := m.requests.Load()
	total := m.durationMs.Load()

	avg := 0.0
	if count > 0 {
		avg = float64(total) / float64(count)
	}

	return gin.H{
		"request_count":       count,
		"request_duration_ms": total,
		"avg_duration_ms":     avg,
		"server_errors":       m.errors.Load(),
		"uploads_accepted":    m.uploads.Load(),
	}
}
