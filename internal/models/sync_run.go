package models

import (
	"time"

	"gorm.io/datatypes"
)

// Sync run kinds.
const (
	SyncKindAssignments   = "assignments"
	SyncKindAnnouncements = "announcements"
)

// SyncRun records the outcome of one calendar sync for a session.
type SyncRun struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SessionID   string         `gorm:"size:64;index" json:"session_id"`
	Kind        string         `gorm:"size:32;index" json:"kind"`
	Total       int            `json:"total"`
	Success     int            `json:"success"`
	Failed      int            `json:"failed"`
	SkippedPast int            `json:"skipped_past_events"`
	Events      datatypes.JSON `gorm:"type:json;default:'[]'" json:"events"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}
