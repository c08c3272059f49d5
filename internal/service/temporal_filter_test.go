package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

func TestIsUpcoming(t *testing.T) {
	now := time.Date(2025, 9, 10, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name string
		due  models.DueInstant
		want bool
	}{
		{name: "missing date", due: models.DueInstant{}, want: false},
		{name: "unparseable date", due: models.DueInstant{Date: "next friday"}, want: false},
		{name: "yesterday", due: models.DueInstant{Date: "2025-09-09"}, want: false},
		{name: "today without time", due: models.DueInstant{Date: "2025-09-10"}, want: true},
		{name: "tomorrow without time", due: models.DueInstant{Date: "2025-09-11"}, want: true},
		{name: "exactly now", due: models.DueInstant{Date: "2025-09-10", Time: "14:30"}, want: false},
		{name: "one minute ahead", due: models.DueInstant{Date: "2025-09-10", Time: "14:31"}, want: true},
		{name: "earlier today", due: models.DueInstant{Date: "2025-09-10", Time: "09:00"}, want: false},
		{name: "time with seconds", due: models.DueInstant{Date: "2025-09-10", Time: "18:00:00"}, want: true},
		{name: "unparseable time today", due: models.DueInstant{Date: "2025-09-10", Time: "noon"}, want: true},
		{name: "unparseable time yesterday", due: models.DueInstant{Date: "2025-09-09", Time: "noon"}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsUpcoming(now, tc.due))
		})
	}
}

func TestIsUpcomingConvertsRecordZoneToNow(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	// 20:00 IST is 14:30 UTC.
	now := time.Date(2025, 9, 10, 20, 0, 0, 0, ist)

	require.False(t, IsUpcoming(now, models.DueInstant{Date: "2025-09-10", Time: "14:00", Location: time.UTC}))
	require.True(t, IsUpcoming(now, models.DueInstant{Date: "2025-09-10", Time: "15:00", Location: time.UTC}))
	// Without a zone the time is read on the caller's clock.
	require.False(t, IsUpcoming(now, models.DueInstant{Date: "2025-09-10", Time: "15:00"}))
}

func TestFilterUpcomingMixedRecords(t *testing.T) {
	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

	deadlines := []models.ExtractedDeadline{
		{Title: "past", DueDate: "2025-09-01"},
		{Title: "today", DueDate: "2025-09-10"},
		{Title: "later today", DueDate: "2025-09-10", DueTime: strPtr("13:00")},
		{Title: "no date"},
		{Title: "future", DueDate: "2025-10-01", DueTime: strPtr("08:00")},
	}
	kept := FilterUpcoming(now, deadlines)

	titles := make([]string, 0, len(kept))
	for _, deadline := range kept {
		titles = append(titles, deadline.Title)
	}
	require.Equal(t, []string{"today", "later today", "future"}, titles)

	assignments := []models.Assignment{
		{Title: "closed", DueDate: "2025-09-10", DueTime: "11:59", DueTimeUTC: true},
		{Title: "open", DueDate: "2025-09-10", DueTime: "23:59", DueTimeUTC: true},
	}
	keptAssignments := FilterUpcoming(now, assignments)
	require.Len(t, keptAssignments, 1)
	require.Equal(t, "open", keptAssignments[0].Title)
}
