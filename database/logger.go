package database

import (
	"time"

	"github.com/kinnrichard/image-uploader/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"
)

// zerologWriter 将 gorm 日志写入 zerolog
type zerologWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.logger.WithLevel(w.level).Msgf(format, args...)
}

// newGormLogger 开发版本输出 SQL，发布版本只记录错误
func newGormLogger() logger.Interface {
	level, writeLevel := logger.Error, zerolog.WarnLevel
	if config.IsDevelopment() {
		level, writeLevel = logger.Info, zerolog.DebugLevel
	}

	return logger.New(
		zerologWriter{logger: log.With().Str("component", "gorm").Logger(), level: writeLevel},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
