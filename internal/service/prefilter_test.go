package service

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

func TestFilterRelevantAnnouncementsKeepsKeywordMatchesInOrder(t *testing.T) {
	announcements := []models.Announcement{
		{Text: "Welcome to the course!", CourseName: "Math 101"},
		{Text: "Lab REPORT due Monday", CourseName: "Physics"},
		{Text: "   ", CourseName: "Physics"},
		{Text: "", CourseName: "Math 101"},
		{Text: "Midterm is on the 12th", CourseName: "History"},
		{Text: "Slides are uploaded", CourseName: "History"},
	}

	relevant := FilterRelevantAnnouncements(zerolog.Nop(), announcements)

	require.Len(t, relevant, 2)
	require.Equal(t, "Lab REPORT due Monday", relevant[0].Text)
	require.Equal(t, "Midterm is on the 12th", relevant[1].Text)
}

func TestFilterRelevantAnnouncementsIsSubsetWithKeyword(t *testing.T) {
	announcements := []models.Announcement{
		{Text: "Submit your essay"},
		{Text: "Bring a calculator"},
		{Text: "We will meet on Friday"},
		{Text: "Please turn in the form"},
	}

	relevant := FilterRelevantAnnouncements(zerolog.Nop(), announcements)

	require.LessOrEqual(t, len(relevant), len(announcements))
	for _, announcement := range relevant {
		require.Contains(t, announcements, announcement)
		require.True(t, mentionsDeadline(announcement.Text))
	}
	require.Len(t, relevant, 3)
}

func TestFilterRelevantAnnouncementsEmptyInput(t *testing.T) {
	require.Empty(t, FilterRelevantAnnouncements(zerolog.Nop(), nil))
}
