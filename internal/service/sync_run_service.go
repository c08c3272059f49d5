package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/dto"
	"github.com/noah-isme/deadline-sync-api/internal/repository"
)

const defaultSyncRunPageSize = 20

// SyncRunService exposes the recorded sync history of a session.
type SyncRunService interface {
	List(ctx context.Context, sessionID string, query dto.SyncRunQuery) (dto.SyncRunListResponse, error)
}

type syncRunService struct {
	repo   repository.SyncRunRepository
	logger zerolog.Logger
}

// NewSyncRunService constructs the history service.
func NewSyncRunService(repo repository.SyncRunRepository, logger zerolog.Logger) SyncRunService {
	return &syncRunService{
		repo:   repo,
		logger: logger.With().Str("component", "sync_run_service").Logger(),
	}
}

func (s *syncRunService) List(ctx context.Context, sessionID string, query dto.SyncRunQuery) (dto.SyncRunListResponse, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = defaultSyncRunPageSize
	}

	runs, total, err := s.repo.List(ctx, repository.SyncRunFilter{
		SessionID: sessionID,
		Kind:      query.Kind,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return dto.SyncRunListResponse{}, fmt.Errorf("list sync runs: %w", err)
	}

	items := make([]dto.SyncRunResponse, 0, len(runs))
	for _, run := range runs {
		items = append(items, dto.NewSyncRunResponse(run))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return dto.SyncRunListResponse{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: totalPages,
		},
	}, nil
}
