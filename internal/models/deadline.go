package models

import (
	"strings"
	"time"
)

// EventType classifies a deadline.
type EventType string

const (
	EventTypeAssignment EventType = "Assignment"
	EventTypeQuiz       EventType = "Quiz"
	EventTypeExam       EventType = "Exam"
	EventTypeProject    EventType = "Project"
	EventTypeOther      EventType = "Other"
)

// SourceAnnouncement tags deadlines extracted from announcement text.
const SourceAnnouncement = "announcement"

// MinConfidence is the lowest confidence a candidate may carry and still pass the gate.
const MinConfidence = 0.5

// ParseEventType normalises free text from the model into a known event type.
func ParseEventType(value string) EventType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "assignment", "homework":
		return EventTypeAssignment
	case "quiz":
		return EventTypeQuiz
	case "exam", "test", "midterm", "final":
		return EventTypeExam
	case "project":
		return EventTypeProject
	default:
		return EventTypeOther
	}
}

// Announcement is the raw input unit read from a course stream.
type Announcement struct {
	Text         string `json:"text"`
	CourseName   string `json:"courseName"`
	CreationTime string `json:"creationTime"`
}

// CandidateDeadline is a single record returned by the inference service.
type CandidateDeadline struct {
	AnnouncementIndex int       `json:"announcementNumber"`
	Title             string    `json:"title"`
	DueDate           *string   `json:"dueDate"`
	DueTime           *string   `json:"dueTime"`
	Description       string    `json:"description"`
	EventType         EventType `json:"eventType"`
	Confidence        float64   `json:"confidence"`
}

// PassesGate reports whether the candidate has a due date and enough confidence.
func (c CandidateDeadline) PassesGate() bool {
	return c.DueDate != nil && c.Confidence >= MinConfidence
}

// ExtractedDeadline is a candidate that passed the gate and was attributed to its course.
type ExtractedDeadline struct {
	AnnouncementIndex int       `json:"announcementNumber"`
	Title             string    `json:"title"`
	DueDate           string    `json:"dueDate"`
	DueTime           *string   `json:"dueTime"`
	Description       string    `json:"description"`
	EventType         EventType `json:"eventType"`
	Confidence        float64   `json:"confidence"`
	CourseName        string    `json:"courseName"`
	Source            string    `json:"source"`
}

// DueAt returns the due instant. Extracted times carry no zone and are read
// in the caller's local zone.
func (d ExtractedDeadline) DueAt() DueInstant {
	instant := DueInstant{Date: d.DueDate}
	if d.DueTime != nil {
		instant.Time = *d.DueTime
	}
	return instant
}

// DueInstant is the date and optional wall-clock time a record is due.
// A nil Location means the time is read in the zone of the reference clock.
type DueInstant struct {
	Date     string
	Time     string
	Location *time.Location
}
