package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

// SyncRunFilter narrows sync run listings.
type SyncRunFilter struct {
	SessionID string
	Kind      string
	Page      int
	PageSize  int
}

// SyncRunRepository persists calendar sync outcomes.
type SyncRunRepository interface {
	Create(ctx context.Context, run *models.SyncRun) error
	List(ctx context.Context, filter SyncRunFilter) ([]models.SyncRun, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type syncRunRepository struct {
	db *gorm.DB
}

// NewSyncRunRepository constructs the repository implementation.
func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepository{db: db}
}

func (r *syncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *syncRunRepository) List(ctx context.Context, filter SyncRunFilter) ([]models.SyncRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncRun{})
	if filter.SessionID != "" {
		query = query.Where("session_id = ?", filter.SessionID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var runs []models.SyncRun
	if err := query.Order("created_at DESC, id DESC").Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

func (r *syncRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SyncRun{})
	return result.RowsAffected, result.Error
}
