package service

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

// deadlineKeywords are matched as case-insensitive substrings of announcement text.
var deadlineKeywords = []string{
	"assignment", "quiz", "exam", "test", "homework", "report", "submission", "project",
	"deadline", "due", "due by", "submit", "due date", "turn in", "presentation",
	"tomorrow", "next week", "friday", "monday", "tuesday", "wednesday", "thursday",
	"saturday", "sunday", "lab report", "midterm", "final",
}

// FilterRelevantAnnouncements keeps the announcements that mention at least one
// deadline keyword, preserving input order. Blank announcements are dropped.
func FilterRelevantAnnouncements(logger zerolog.Logger, announcements []models.Announcement) []models.Announcement {
	relevant := make([]models.Announcement, 0, len(announcements))
	for _, announcement := range announcements {
		if mentionsDeadline(announcement.Text) {
			relevant = append(relevant, announcement)
		}
	}

	logger.Info().
		Int("relevant", len(relevant)).
		Int("total", len(announcements)).
		Msg("filtered announcements by keyword")
	return relevant
}

func mentionsDeadline(text string) bool {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return false
	}
	for _, keyword := range deadlineKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
