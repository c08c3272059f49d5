package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

// PaginationMeta describes a page of a listing.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// CreateSessionRequest carries an access token obtained by the client's OAuth flow.
type CreateSessionRequest struct {
	AccessToken string `json:"access_token" validate:"required,min=8,max=4096"`
}

// SessionResponse is returned when a session is opened.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateCalendarEventRequest is a manual calendar entry.
type CreateCalendarEventRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"omitempty,datetime=15:04"`
}

// SyncRunQuery filters the sync history of the current session.
type SyncRunQuery struct {
	Kind     string `query:"kind" validate:"omitempty,oneof=assignments announcements"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// SyncRunResponse is the serialized form of a recorded sync.
type SyncRunResponse struct {
	ID          uint            `json:"id"`
	Kind        string          `json:"kind"`
	Total       int             `json:"total"`
	Success     int             `json:"success"`
	Failed      int             `json:"failed"`
	SkippedPast int             `json:"skipped_past_events"`
	Events      json.RawMessage `json:"events"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SyncRunListResponse is a page of sync runs.
type SyncRunListResponse struct {
	Items      []SyncRunResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewSyncRunResponse converts a stored run.
func NewSyncRunResponse(run models.SyncRun) SyncRunResponse {
	events := json.RawMessage(run.Events)
	if len(events) == 0 {
		events = json.RawMessage("[]")
	}
	return SyncRunResponse{
		ID:          run.ID,
		Kind:        run.Kind,
		Total:       run.Total,
		Success:     run.Success,
		Failed:      run.Failed,
		SkippedPast: run.SkippedPast,
		Events:      events,
		CreatedAt:   run.CreatedAt,
	}
}
