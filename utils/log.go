package utils

import (
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/kinnrichard/image-uploader/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger 初始化全局 zerolog 日志
// 开发版本输出彩色控制台格式，发布版本输出 JSON
func InitLogger(level string) {
	var out io.Writer = os.Stdout
	if !config.IsProduction() {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(ParseLogLevel(level))
}

// ParseLogLevel 解析日志级别，无法识别时返回 info
func ParseLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger 返回全局日志实例
func Logger() *zerolog.Logger {
	return &log.Logger
}

// LogIfDev 仅在开发版本输出 debug 日志
func LogIfDev(msg string) {
	if config.IsDevelopment() {
		log.Debug().Msg(msg)
	}
}

// LogIfDevf 仅在开发版本输出格式化 debug 日志
func LogIfDevf(format string, args ...interface{}) {
	if config.IsDevelopment() {
		log.Debug().Msgf(format, args...)
	}
}

func SanitizeLogMessage(msg string) string {
	var sb strings.Builder
	for _, r := range msg {
		if r == 10 || r == 9 {
			sb.WriteRune(r)
		} else if unicode.IsPrint(r) || unicode.IsGraphic(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func SanitizeLogUsername(username string) string {
	if len(username) > 50 {
		username = username[:50] + "..."
	}
	return SanitizeLogMessage(strings.ReplaceAll(username, "\n", ""))
}
