package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// migrateCmd 创建或更新数据库结构
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, args []string) {
		config.InitConfig()
		cfg := config.Get()
		utils.InitLogger(cfg.LogLevel)

		factory, err := database.NewFactory(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer factory.Close()

		if err := factory.AutoMigrate(); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
	},
}

// migrateCopyCmd 跨库复制数据
var migrateCopyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy users and images to another database",
	Long: `Copy users and images from a source database to a target database.

Examples:
  # Copy from SQLite to PostgreSQL
  image-uploader migrate copy --from-sqlite ./data/app.db --to-postgres "host=localhost user=postgres password=secret dbname=uploader port=5432"

  # Overwrite rows that already exist in the target
  image-uploader migrate copy --from-sqlite ./data/app.db --to-postgres "..." --on-conflict=overwrite`,
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger("info")

		fromType, _ := cmd.Flags().GetString("from-type")
		toType, _ := cmd.Flags().GetString("to-type")
		fromDSN, _ := cmd.Flags().GetString("from-dsn")
		toDSN, _ := cmd.Flags().GetString("to-dsn")
		fromSQLite, _ := cmd.Flags().GetString("from-sqlite")
		toPostgres, _ := cmd.Flags().GetString("to-postgres")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		onConflict, _ := cmd.Flags().GetString("on-conflict")

		// 处理快捷方式参数
		if fromSQLite != "" {
			fromType, fromDSN = "sqlite", fromSQLite
		}
		if toPostgres != "" {
			toType, toDSN = "postgres", toPostgres
		}

		if err := runCopy(fromType, fromDSN, toType, toDSN, batchSize, onConflict); err != nil {
			log.Fatal().Err(err).Msg("Copy failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateCopyCmd)

	migrateCopyCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateCopyCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateCopyCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateCopyCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateCopyCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateCopyCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateCopyCmd.Flags().Int("batch-size", 100, "Batch size for data copy")
	migrateCopyCmd.Flags().String("on-conflict", database.ConflictSkip, "Conflict resolution strategy: skip (default), overwrite, error")
}

// runCopy 执行跨库复制
func runCopy(fromType, fromDSN, toType, toDSN string, batchSize int, onConflict string) error {
	if fromType == "" || toType == "" {
		return fmt.Errorf("both --from-type and --to-type are required")
	}
	if fromDSN == "" || toDSN == "" {
		return fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if fromType == toType && fromDSN == toDSN {
		return fmt.Errorf("source and target databases are the same")
	}

	log.Info().
		Str("source", maskDSN(fromDSN)).
		Str("target", maskDSN(toDSN)).
		Str("on_conflict", onConflict).
		Msgf("Copying from %s to %s", fromType, toType)

	source, err := database.OpenDirect(fromType, fromDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	if sqlDB, err := source.DB(); err == nil {
		defer sqlDB.Close()
	}

	target, err := database.OpenDirect(toType, toDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	if sqlDB, err := target.DB(); err == nil {
		defer sqlDB.Close()
	}

	stats, err := database.CopyAll(context.Background(), source, target, database.CopyOptions{
		BatchSize:  batchSize,
		OnConflict: onConflict,
	})
	if stats != nil {
		fmt.Printf("Users copied:  %d\n", stats.Users)
		fmt.Printf("Images copied: %d\n", stats.Images)
	}
	return err
}

// maskDSN 隐藏连接串中的密码
func maskDSN(dsn string) string {
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	return strings.Join(fields, " ")
}
