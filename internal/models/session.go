package models

import "time"

// Session holds the per-caller state the API keeps between requests.
type Session struct {
	ID              string              `json:"id"`
	AccessToken     string              `json:"accessToken"`
	Assignments     []Assignment        `json:"assignments,omitempty"`
	Deadlines       []ExtractedDeadline `json:"deadlines,omitempty"`
	ClassworkLoaded bool                `json:"classworkLoaded"`
	DeadlinesLoaded bool                `json:"deadlinesLoaded"`
	CreatedAt       time.Time           `json:"createdAt"`
}
