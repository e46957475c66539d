package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/internal/app"
	imageSvc "github.com/kinnrichard/image-uploader/internal/services/image"
	"github.com/kinnrichard/image-uploader/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// cleanCmd 清理上传失败后遗留的孤儿文件
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Find storage files without image records",
	Long: `Compare stored files with image records.
This includes:
  - Report storage files without a corresponding image record (orphans)
  - Report image records whose file is missing from storage
  - Delete orphans when --delete is given

Missing files are only reported, records are never deleted.
Files not named like uploads are reported as unknown and never deleted.`,
	Run: func(cmd *cobra.Command, args []string) {
		remove, _ := cmd.Flags().GetBool("delete")
		minAge, _ := cmd.Flags().GetDuration("min-age")

		if err := runClean(remove, minAge); err != nil {
			log.Fatal().Err(err).Msg("Clean failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("delete", false, "Delete orphan files instead of only reporting them")
	cleanCmd.Flags().Duration("min-age", app.DefaultOrphanMinAge, "Ignore files newer than this, they may still be uploading")
}

// runClean 执行扫描与清理
func runClean(remove bool, minAge time.Duration) error {
	config.InitConfig()
	cfg := config.Get()
	utils.InitLogger(cfg.LogLevel)

	container := app.NewContainer(cfg)
	if err := container.InitDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer container.Close()
	if err := container.InitStorage(); err != nil {
		return err
	}

	ctx := context.Background()
	scanner := container.NewOrphanScanner(minAge)

	report, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	deleted := 0
	if remove && len(report.Orphans) > 0 {
		deleted, err = scanner.Remove(ctx, report.Orphans)
		printCleanStats(report, deleted, remove)
		return err
	}

	printCleanStats(report, deleted, remove)
	return nil
}

// printCleanStats 打印清理统计
func printCleanStats(report *imageSvc.OrphanReport, deleted int, remove bool) {
	fmt.Println()
	fmt.Println("========================================")
	if !remove {
		fmt.Println("           [REPORT ONLY]")
	}
	fmt.Println("         Clean Statistics")
	fmt.Println("========================================")
	fmt.Printf("Orphan files found:         %d\n", len(report.Orphans))
	fmt.Printf("Missing files found:        %d\n", len(report.Missing))
	fmt.Printf("Unrecognized files kept:    %d\n", len(report.Unrecognized))
	fmt.Printf("Recent files skipped:       %d\n", report.Skipped)
	fmt.Printf("Orphan files deleted:       %d\n", deleted)
	fmt.Println("========================================")

	for _, name := range report.Orphans {
		fmt.Printf("  orphan:  %s\n", name)
	}
	for _, name := range report.Missing {
		fmt.Printf("  missing: %s\n", name)
	}
	for _, name := range report.Unrecognized {
		fmt.Printf("  unknown: %s\n", name)
	}
}
