package models

// EventTime is either an all-day date or a timed instant with its zone.
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// CreatedEvent describes an event written to the calendar, as reported to clients.
type CreatedEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	HTMLLink    string    `json:"htmlLink"`
	Type        string    `json:"type,omitempty"`
	CourseName  string    `json:"courseName,omitempty"`
}
