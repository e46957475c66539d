package image

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/kinnrichard/image-uploader/database/repo/images"
	"github.com/kinnrichard/image-uploader/storage"
	"github.com/kinnrichard/image-uploader/utils"
	"github.com/kinnrichard/image-uploader/utils/generator"
	"golang.org/x/sync/errgroup"
)

// OrphanReport 存储与元数据的差异
type OrphanReport struct {
	// Orphans 存储中存在但没有元数据记录的文件
	Orphans []string
	// Missing 有元数据记录但存储中缺失的文件，只报告不处理
	Missing []string
	// Unrecognized 不符合上传命名规则的文件，不是本服务写入的，只报告不删除
	Unrecognized []string
	// Skipped 仍处于宽限期内的新文件
	Skipped int
}

// OrphanScanner 孤儿文件扫描器
type OrphanScanner struct {
	repo        images.RepositoryInterface
	storage     storage.Provider
	minAge      time.Duration
	concurrency int
	now         func() time.Time
}

// NewOrphanScanner 创建孤儿文件扫描器
// minAge: 比此时间更新的文件可能仍在上传流程中，不视为孤儿
func NewOrphanScanner(repo images.RepositoryInterface, storageProvider storage.Provider, minAge time.Duration) *OrphanScanner {
	return &OrphanScanner{
		repo:        repo,
		storage:     storageProvider,
		minAge:      minAge,
		concurrency: 8,
		now:         time.Now,
	}
}

// Scan 对比存储文件与元数据记录
func (s *OrphanScanner) Scan(ctx context.Context) (*OrphanReport, error) {
	var stored, recorded []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		names, err := s.storage.List(gctx)
		if err != nil {
			return fmt.Errorf("failed to list storage: %w", err)
		}
		stored = names
		return nil
	})
	g.Go(func() error {
		names, err := s.repo.ListFilenames(gctx)
		if err != nil {
			return fmt.Errorf("failed to list image records: %w", err)
		}
		recorded = names
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	storedSet := make(map[string]struct{}, len(stored))
	for _, name := range stored {
		storedSet[name] = struct{}{}
	}
	recordedSet := make(map[string]struct{}, len(recorded))
	for _, name := range recorded {
		recordedSet[name] = struct{}{}
	}

	report := &OrphanReport{}
	cutoff := s.now().Add(-s.minAge)
	for _, name := range stored {
		if _, ok := recordedSet[name]; ok {
			continue
		}
		ts, ok := generator.ParseTimestamp(name)
		if !ok {
			report.Unrecognized = append(report.Unrecognized, name)
			continue
		}
		if ts.After(cutoff) {
			report.Skipped++
			continue
		}
		report.Orphans = append(report.Orphans, name)
	}
	for _, name := range recorded {
		if _, ok := storedSet[name]; !ok {
			report.Missing = append(report.Missing, name)
		}
	}

	sort.Strings(report.Orphans)
	sort.Strings(report.Missing)
	sort.Strings(report.Unrecognized)

	utils.LogIfDevf("[OrphanScanner] %d stored, %d recorded, %d orphans, %d missing, %d unrecognized",
		len(stored), len(recorded), len(report.Orphans), len(report.Missing), len(report.Unrecognized))
	return report, nil
}

// Remove 并发删除孤儿文件，返回成功删除的数量
func (s *OrphanScanner) Remove(ctx context.Context, names []string) (int, error) {
	var removed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, name := range names {
		g.Go(func() error {
			if err := s.storage.DeleteWithContext(gctx, name); err != nil {
				return fmt.Errorf("failed to delete orphan %s: %w", name, err)
			}
			atomic.AddInt64(&removed, 1)
			utils.Logger().Info().Str("filename", name).Msg("Removed orphaned upload")
			return nil
		})
	}

	err := g.Wait()
	return int(removed), err
}
