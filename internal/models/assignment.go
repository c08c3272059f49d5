package models

import "time"

// Assignment is a formally scheduled work item fetched from the classroom.
// It is authoritative and is never altered by the deadline pipeline.
type Assignment struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	CourseName    string `json:"courseName"`
	WorkType      string `json:"workType"`
	DueDate       string `json:"dueDate"`
	DueTime       string `json:"dueTime,omitempty"`
	DueTimeUTC    bool   `json:"dueTimeUTC,omitempty"`
	LocalDueTime  string `json:"localDueTime,omitempty"`
	LocalTimezone string `json:"localTimezone,omitempty"`
}

// DueAt returns the due instant. Due times on assignments are always UTC.
func (a Assignment) DueAt() DueInstant {
	instant := DueInstant{Date: a.DueDate, Time: a.DueTime}
	if a.DueTime != "" && a.DueTimeUTC {
		instant.Location = time.UTC
	}
	return instant
}
