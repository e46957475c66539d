package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/utils"
	"github.com/rs/zerolog"
)

// RequestLogger 使用 zerolog 记录请求
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		level := zerolog.DebugLevel
		switch {
		case status >= 500:
			level = zerolog.ErrorLevel
		case status >= 400:
			level = zerolog.InfoLevel
		}

		event := utils.Logger().WithLevel(level).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP())
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request")
	}
}
