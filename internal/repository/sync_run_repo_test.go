package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

func TestSyncRunRepositoryListFiltersBySessionAndPaginates(t *testing.T) {
	db := setupTestDB(t, &models.SyncRun{})
	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	runs := []models.SyncRun{
		{SessionID: "s-1", Kind: models.SyncKindAssignments, Total: 2, Success: 2, CreatedAt: base},
		{SessionID: "s-1", Kind: models.SyncKindAnnouncements, Total: 1, Failed: 1, CreatedAt: base.Add(time.Hour)},
		{SessionID: "s-2", Kind: models.SyncKindAssignments, Total: 3, Success: 3, CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range runs {
		runs[i].Events = datatypes.JSON(`[]`)
		require.NoError(t, repo.Create(ctx, &runs[i]))
	}

	items, total, err := repo.List(ctx, SyncRunFilter{SessionID: "s-1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	require.Equal(t, models.SyncKindAnnouncements, items[0].Kind, "newest run should come first")

	paged, total, err := repo.List(ctx, SyncRunFilter{SessionID: "s-1", Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, paged, 1)
	require.Equal(t, models.SyncKindAssignments, paged[0].Kind)

	byKind, total, err := repo.List(ctx, SyncRunFilter{Kind: models.SyncKindAssignments})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, byKind, 2)
}

func TestSyncRunRepositoryDeleteOlderThan(t *testing.T) {
	db := setupTestDB(t, &models.SyncRun{})
	repo := NewSyncRunRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &models.SyncRun{SessionID: "old", Kind: models.SyncKindAssignments, CreatedAt: now.Add(-40 * 24 * time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.SyncRun{SessionID: "new", Kind: models.SyncKindAssignments, CreatedAt: now}))

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	items, total, err := repo.List(ctx, SyncRunFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "new", items[0].SessionID)
}

func setupTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}
