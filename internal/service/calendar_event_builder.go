package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/pkg/calendar"
)

const (
	calendarDateTimeLayout = "2006-01-02T15:04:05"
	announcementColorID    = "4"
	customColorID          = "7"
	defaultDisplayOffset   = 5*60 + 30
	defaultDisplayLabel    = "IST"
)

// EventSource is the part of an assignment or extracted deadline needed to
// build a calendar event.
type EventSource struct {
	Title       string
	Description string
	CourseName  string
	DueDate     string
	DueTime     string
	// EventType prefixes the summary. It is only set for announcement deadlines.
	EventType        string
	FromAnnouncement bool
}

// SourceFromAssignment adapts a classroom assignment.
func SourceFromAssignment(a models.Assignment) EventSource {
	return EventSource{
		Title:       a.Title,
		Description: a.Description,
		CourseName:  a.CourseName,
		DueDate:     a.DueDate,
		DueTime:     a.DueTime,
	}
}

// SourceFromDeadline adapts a deadline extracted from an announcement.
func SourceFromDeadline(d models.ExtractedDeadline) EventSource {
	source := EventSource{
		Title:            d.Title,
		Description:      d.Description,
		CourseName:       d.CourseName,
		DueDate:          d.DueDate,
		EventType:        string(d.EventType),
		FromAnnouncement: true,
	}
	if d.DueTime != nil {
		source.DueTime = *d.DueTime
	}
	if source.EventType == "" {
		source.EventType = "Deadline"
	}
	return source
}

// EventBuilderConfig controls how due times are shown in event summaries.
type EventBuilderConfig struct {
	// DisplayOffsetMinutes is added to the UTC due time for display only.
	DisplayOffsetMinutes int
	DisplayLabel         string
}

// EventBuilder turns due records into calendar event payloads.
type EventBuilder struct {
	offset int
	label  string
}

// NewEventBuilder returns a builder. A zero config displays times in IST (UTC+5:30).
func NewEventBuilder(cfg EventBuilderConfig) EventBuilder {
	switch {
	case cfg.DisplayLabel == "" && cfg.DisplayOffsetMinutes == 0:
		cfg.DisplayLabel = defaultDisplayLabel
		cfg.DisplayOffsetMinutes = defaultDisplayOffset
	case cfg.DisplayLabel == "":
		cfg.DisplayLabel = "local"
	}
	return EventBuilder{offset: cfg.DisplayOffsetMinutes, label: cfg.DisplayLabel}
}

// Build synthesises the event for one record. Only an unparseable due date is an error.
// A due time that cannot be parsed degrades the event to all-day.
func (b EventBuilder) Build(source EventSource) (calendar.Event, error) {
	day, err := time.ParseInLocation(dueDateLayout, strings.TrimSpace(source.DueDate), time.UTC)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("invalid due date %q: %w", source.DueDate, err)
	}

	event := calendar.Event{Description: source.Description}
	if source.FromAnnouncement {
		event.ColorID = announcementColorID
	}

	suffix := ""
	rawTime := strings.TrimSpace(source.DueTime)
	clock, timed := parseClock(rawTime)
	switch {
	case timed:
		start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
		event.Start = calendar.EventTime{DateTime: start.Format(calendarDateTimeLayout), TimeZone: "UTC"}
		event.End = calendar.EventTime{DateTime: start.Add(time.Hour).Format(calendarDateTimeLayout), TimeZone: "UTC"}
		suffix = fmt.Sprintf(" (Due: %s %s)", b.DisplayTime(clock.Hour(), clock.Minute()), b.label)
	default:
		event.Start = calendar.EventTime{Date: day.Format(dueDateLayout)}
		event.End = calendar.EventTime{Date: day.AddDate(0, 0, 1).Format(dueDateLayout)}
		if rawTime != "" {
			suffix = fmt.Sprintf(" (Due: %s UTC)", rawTime)
		}
	}

	if source.EventType != "" {
		event.Summary = fmt.Sprintf("%s: %s%s - %s", source.EventType, source.Title, suffix, source.CourseName)
	} else {
		event.Summary = fmt.Sprintf("%s%s - %s", source.Title, suffix, source.CourseName)
	}
	return event, nil
}

// BuildCustom builds a user-defined event. Times are read as UTC.
func (b EventBuilder) BuildCustom(title, description, date, clockTime string) (calendar.Event, error) {
	day, err := time.ParseInLocation(dueDateLayout, strings.TrimSpace(date), time.UTC)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	event := calendar.Event{Summary: title, Description: description, ColorID: customColorID}
	if strings.TrimSpace(clockTime) == "" {
		event.Start = calendar.EventTime{Date: day.Format(dueDateLayout)}
		event.End = calendar.EventTime{Date: day.AddDate(0, 0, 1).Format(dueDateLayout)}
		return event, nil
	}

	clock, ok := parseClock(clockTime)
	if !ok {
		return calendar.Event{}, fmt.Errorf("invalid time %q", clockTime)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	event.Start = calendar.EventTime{DateTime: start.Format(calendarDateTimeLayout), TimeZone: "UTC"}
	event.End = calendar.EventTime{DateTime: start.Add(time.Hour).Format(calendarDateTimeLayout), TimeZone: "UTC"}
	return event, nil
}

// DisplayTime shifts a UTC wall-clock time by the display offset and renders
// it on a 12-hour clock, e.g. 18:45 becomes "12:15 AM" at +5:30.
func (b EventBuilder) DisplayTime(hour, minute int) string {
	const day = 24 * 60
	total := ((hour*60+minute+b.offset)%day + day) % day
	h, m := total/60, total%60

	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	if h > 12 {
		h -= 12
	}
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, period)
}
