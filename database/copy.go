package database

import (
	"context"
	"fmt"

	"github.com/kinnrichard/image-uploader/database/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// 冲突处理策略
const (
	ConflictSkip      = "skip"
	ConflictOverwrite = "overwrite"
	ConflictError     = "error"
)

// CopyOptions 跨库复制参数
type CopyOptions struct {
	BatchSize  int
	OnConflict string
}

// CopyStats 复制统计
type CopyStats struct {
	Users  int64
	Images int64
}

// OpenDirect 按类型与 DSN 直接打开数据库，不读取全局配置
func OpenDirect(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

// CopyAll 将 users 与 images 从 source 复制到 target，保留主键
// 先复制 users 保证外键可用，目标库结构会先自动迁移
func CopyAll(ctx context.Context, source, target *gorm.DB, opts CopyOptions) (*CopyStats, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	conflict, err := conflictClause(opts.OnConflict)
	if err != nil {
		return nil, err
	}

	if err := target.WithContext(ctx).AutoMigrate(&models.User{}, &models.Image{}); err != nil {
		return nil, fmt.Errorf("failed to migrate target schema: %w", err)
	}

	stats := &CopyStats{}

	stats.Users, err = copyTable[models.User](ctx, source, target, conflict, opts.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("users copy failed: %w", err)
	}
	log.Info().Int64("rows", stats.Users).Msg("Copied users")

	stats.Images, err = copyTable[models.Image](ctx, source, target, conflict, opts.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("images copy failed: %w", err)
	}
	log.Info().Int64("rows", stats.Images).Msg("Copied images")

	if target.Dialector.Name() == "postgres" {
		if err := resetSequences(ctx, target, "users", "images"); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

func conflictClause(strategy string) (*clause.OnConflict, error) {
	switch strategy {
	case ConflictSkip, "":
		return &clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}, nil
	case ConflictOverwrite:
		return &clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}, nil
	case ConflictError:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", strategy)
	}
}

// copyTable 按主键分批读取，避免 offset 翻页在大表上变慢
func copyTable[T any](ctx context.Context, source, target *gorm.DB, conflict *clause.OnConflict, batchSize int) (int64, error) {
	var copied int64
	var lastID uint

	for {
		var batch []T
		err := source.WithContext(ctx).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(batchSize).
			Find(&batch).Error
		if err != nil {
			return copied, err
		}
		if len(batch) == 0 {
			return copied, nil
		}

		tx := target.WithContext(ctx).Omit(clause.Associations)
		if conflict != nil {
			tx = tx.Clauses(*conflict)
		}
		result := tx.Create(&batch)
		if result.Error != nil {
			return copied, result.Error
		}
		copied += result.RowsAffected

		lastID = idOf(&batch[len(batch)-1])
	}
}

func idOf(row interface{}) uint {
	switch v := row.(type) {
	case *models.User:
		return v.ID
	case *models.Image:
		return v.ID
	default:
		return 0
	}
}

// resetSequences 显式写入主键后需要推进 PostgreSQL 序列
func resetSequences(ctx context.Context, db *gorm.DB, tables ...string) error {
	for _, table := range tables {
		sql := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
			table, table)
		if err := db.WithContext(ctx).Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}
