package service

import (
	"strings"
	"time"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

const (
	dueDateLayout = "2006-01-02"
	dueTimeLayout = "15:04"
)

// DueDated is implemented by records that carry a due date and optional time.
type DueDated interface {
	DueAt() models.DueInstant
}

// IsUpcoming reports whether a due instant has not yet passed relative to now.
// A parseable time must be strictly after now; a date alone counts for the whole day.
func IsUpcoming(now time.Time, due models.DueInstant) bool {
	date := strings.TrimSpace(due.Date)
	if date == "" {
		return false
	}

	loc := due.Location
	if loc == nil {
		loc = now.Location()
	}

	if clock, ok := parseClock(due.Time); ok {
		day, err := time.ParseInLocation(dueDateLayout, date, loc)
		if err == nil {
			instant := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
			return instant.After(now)
		}
	}

	day, err := time.ParseInLocation(dueDateLayout, date, now.Location())
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return !day.Before(today)
}

// FilterUpcoming returns the records whose due instant has not passed, in input order.
func FilterUpcoming[T DueDated](now time.Time, items []T) []T {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if IsUpcoming(now, item.DueAt()) {
			kept = append(kept, item)
		}
	}
	return kept
}

func parseClock(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dueTimeLayout, dueTimeLayout + ":05"} {
		if clock, err := time.Parse(layout, value); err == nil {
			return clock, true
		}
	}
	return time.Time{}, false
}
