package image

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kinnrichard/image-uploader/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrphanScanner_ScanAndRemove(t *testing.T) {
	env := setupUploadEnv(t, DefaultMaxUploadBytes)
	ctx := context.Background()

	kept, err := env.svc.StoreUpload(ctx, env.userID, newFileHeader(t, "kept.png", "image/png", []byte("png")))
	require.NoError(t, err)

	oldOrphan := "image-1000000000000-0123456789abcdef.png"
	require.NoError(t, env.storage.SaveWithContext(ctx, oldOrphan, strings.NewReader("orphan")))
	require.NoError(t, env.storage.SaveWithContext(ctx, "stray.txt", strings.NewReader("stray")))

	missing := &models.Image{
		UserID:       env.userID,
		Filename:     "image-1000000000001-fedcba9876543210.jpg",
		OriginalName: "lost.jpg",
		FilePath:     "image-1000000000001-fedcba9876543210.jpg",
	}
	require.NoError(t, env.repo.SaveImage(ctx, missing))

	scanner := NewOrphanScanner(env.repo, env.storage, time.Minute)
	report, err := scanner.Scan(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{oldOrphan}, report.Orphans)
	assert.Equal(t, []string{missing.Filename}, report.Missing)
	assert.Equal(t, []string{"stray.txt"}, report.Unrecognized)
	assert.Zero(t, report.Skipped)

	removed, err := scanner.Remove(ctx, report.Orphans)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// 不符合命名规则的文件原样保留
	names, err := env.storage.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{kept.Filename, "stray.txt"}, names)

	// 缺失文件的记录不会被删除
	list, err := env.repo.ListImagesByUser(ctx, env.userID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOrphanScanner_SkipsRecentFiles(t *testing.T) {
	env := setupUploadEnv(t, DefaultMaxUploadBytes)
	ctx := context.Background()

	fresh := env.svc.names.Generate(".png")
	require.NoError(t, env.storage.SaveWithContext(ctx, fresh, strings.NewReader("in flight")))

	scanner := NewOrphanScanner(env.repo, env.storage, time.Hour)
	report, err := scanner.Scan(ctx)
	require.NoError(t, err)

	assert.Empty(t, report.Orphans)
	assert.Equal(t, 1, report.Skipped)
}

// TestOrphanScanner_UnrecognizedIgnoresMinAge 外来文件即使宽限期为 0 也不算孤儿
func TestOrphanScanner_UnrecognizedIgnoresMinAge(t *testing.T) {
	env := setupUploadEnv(t, DefaultMaxUploadBytes)
	ctx := context.Background()

	for _, name := range []string{"notes.txt", "image-abc-0123456789abcdef.png", "image-123abc-0123456789abcdef.png"} {
		require.NoError(t, env.storage.SaveWithContext(ctx, name, strings.NewReader("not an upload")))
	}

	report, err := NewOrphanScanner(env.repo, env.storage, 0).Scan(ctx)
	require.NoError(t, err)

	assert.Empty(t, report.Orphans)
	assert.Zero(t, report.Skipped)
	assert.Equal(t, []string{"image-123abc-0123456789abcdef.png", "image-abc-0123456789abcdef.png", "notes.txt"}, report.Unrecognized)
}

func TestOrphanScanner_RemoveMissingFile(t *testing.T) {
	env := setupUploadEnv(t, DefaultMaxUploadBytes)

	scanner := NewOrphanScanner(env.repo, env.storage, 0)
	removed, err := scanner.Remove(context.Background(), []string{"gone.png"})
	assert.Error(t, err)
	assert.Zero(t, removed)
}
