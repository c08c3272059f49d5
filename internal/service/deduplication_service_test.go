package service

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deadline-sync-api/internal/models"
)

var dedupNow = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

func sampleAssignments() []models.Assignment {
	return []models.Assignment{
		{Title: "Problem Set 2", CourseName: "Math 101", WorkType: "ASSIGNMENT", DueDate: "2025-09-15", DueTime: "18:29", DueTimeUTC: true},
	}
}

func sampleDeadlines() []models.ExtractedDeadline {
	return []models.ExtractedDeadline{
		{AnnouncementIndex: 1, Title: "Problem Set 2", DueDate: "2025-09-15", EventType: models.EventTypeAssignment, Confidence: 0.9, CourseName: "Math 101", Source: models.SourceAnnouncement},
		{AnnouncementIndex: 2, Title: "Quiz 1", DueDate: "2025-09-15", EventType: models.EventTypeQuiz, Confidence: 0.8, CourseName: "Math 101", Source: models.SourceAnnouncement},
		{AnnouncementIndex: 3, Title: "Lab report", DueDate: "2025-09-20", DueTime: strPtr("09:00"), EventType: models.EventTypeAssignment, Confidence: 0.7, CourseName: "Physics", Source: models.SourceAnnouncement},
	}
}

func TestDeduplicateWithoutExtractedDeadlines(t *testing.T) {
	model := &scriptedInferencer{}
	svc := NewDeduplicationService(model, fixedClock(dedupNow), zerolog.Nop())

	assignments := sampleAssignments()
	result := svc.Deduplicate(context.Background(), assignments, nil)

	require.Equal(t, DedupStatusNoDeadlines, result.Status)
	require.Empty(t, result.UniqueDeadlines)
	require.Equal(t, assignments, result.Assignments)
	require.Zero(t, model.calls())
}

func TestDeduplicateWithoutAssignmentsKeepsEverything(t *testing.T) {
	model := &scriptedInferencer{}
	svc := NewDeduplicationService(model, fixedClock(dedupNow), zerolog.Nop())

	extracted := sampleDeadlines()
	result := svc.Deduplicate(context.Background(), nil, extracted)

	require.Equal(t, DedupStatusNoAssignments, result.Status)
	require.Empty(t, cmp.Diff(extracted, result.UniqueDeadlines))
	require.Zero(t, model.calls())
}

func TestDeduplicateSelectsVerdictInOrder(t *testing.T) {
	model := &scriptedInferencer{responses: []string{"```json\n[2, 1, 2, 9, -1]\n```"}}
	svc := NewDeduplicationService(model, fixedClock(dedupNow), zerolog.Nop())

	assignments := sampleAssignments()
	extracted := sampleDeadlines()
	result := svc.Deduplicate(context.Background(), assignments, extracted)

	require.Equal(t, DedupStatusDeduplicated, result.Status)
	require.Equal(t, 1, model.calls())
	require.Equal(t, 2, result.Selected)

	want := []models.ExtractedDeadline{extracted[2], extracted[1]}
	if diff := cmp.Diff(want, result.UniqueDeadlines); diff != "" {
		t.Fatalf("unexpected unique deadlines (-want +got):\n%s", diff)
	}
	require.Empty(t, cmp.Diff(sampleAssignments(), result.Assignments))

	prompt := model.prompts[0]
	require.Contains(t, prompt, `"title": "Problem Set 2"`)
	require.Contains(t, prompt, `"announcementNumber": 3`)
	require.Contains(t, prompt, "0-based")
}

func TestDeduplicateOutputIsSubsetOfInput(t *testing.T) {
	responses := []string{"[0, 1, 2]", "[]", "[1]", "nonsense", `["0", 2.9, true, {"i": 1}]`}
	for _, response := range responses {
		model := &scriptedInferencer{responses: []string{response}}
		svc := NewDeduplicationService(model, fixedClock(dedupNow), zerolog.Nop())

		extracted := sampleDeadlines()
		result := svc.Deduplicate(context.Background(), sampleAssignments(), extracted)

		require.LessOrEqual(t, len(result.UniqueDeadlines), len(extracted), response)
		for _, deadline := range result.UniqueDeadlines {
			require.Contains(t, extracted, deadline, response)
		}
	}
}

func TestDeduplicateAppliesTemporalFilterToSelection(t *testing.T) {
	extracted := append(sampleDeadlines(), models.ExtractedDeadline{
		Title: "Old quiz", DueDate: "2025-09-01", EventType: models.EventTypeQuiz, Confidence: 0.9, CourseName: "Math 101",
	})
	model := &scriptedInferencer{responses: []string{"[1, 3]"}}
	svc := NewDeduplicationService(model, fixedClock(dedupNow), zerolog.Nop())

	result := svc.Deduplicate(context.Background(), sampleAssignments(), extracted)

	require.Equal(t, 2, result.Selected)
	require.Len(t, result.UniqueDeadlines, 1)
	require.Equal(t, "Quiz 1", result.UniqueDeadlines[0].Title)
}

func TestDeduplicateFailsOpen(t *testing.T) {
	extracted := append(sampleDeadlines(), models.ExtractedDeadline{Title: "Old quiz", DueDate: "2025-09-01", CourseName: "Math 101"})
	model := &scriptedInferencer{err: errors.New("connection reset")}
	svc := NewDeduplicationService(model, fixedClock(dedupNow), zerolog.Nop())

	assignments := sampleAssignments()
	result := svc.Deduplicate(context.Background(), assignments, extracted)

	require.Equal(t, DedupStatusFailOpen, result.Status)
	require.NotEmpty(t, result.Warning)
	require.Empty(t, cmp.Diff(extracted, result.UniqueDeadlines), "fail-open returns extracted deadlines unfiltered")
	require.Empty(t, cmp.Diff(assignments, result.Assignments))
}

func TestDeduplicateWithoutInferencerFailsOpen(t *testing.T) {
	svc := NewDeduplicationService(nil, fixedClock(dedupNow), zerolog.Nop())

	extracted := sampleDeadlines()
	result := svc.Deduplicate(context.Background(), sampleAssignments(), extracted)

	require.Equal(t, DedupStatusFailOpen, result.Status)
	require.Len(t, result.UniqueDeadlines, len(extracted))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	cases := map[string]struct {
		value string
		limit int
		want  string
	}{
		"short":      {"[0, 1]", 200, "[0, 1]"},
		"exact":      {"abc", 3, "abc"},
		"ascii":      {"abcdef", 3, "abc..."},
		"multi-byte": {"Prüfung für Kapitel", 2, "Pr..."},
		"split rune": {"ééé", 1, "é..."},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := truncate(tc.value, tc.limit)
			require.Equal(t, tc.want, got)
			require.True(t, utf8.ValidString(got))
		})
	}
}
