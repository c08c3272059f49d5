package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/internal/observability"
	"github.com/noah-isme/deadline-sync-api/pkg/ai"
)

// Deduplication statuses.
const (
	DedupStatusNoDeadlines   = "skipped_no_deadlines"
	DedupStatusNoAssignments = "skipped_no_assignments"
	DedupStatusDeduplicated  = "deduplicated"
	DedupStatusFailOpen      = "fail_open"
)

// DeduplicationResult holds the assignments, untouched, and the extracted
// deadlines that do not duplicate any of them.
type DeduplicationResult struct {
	Assignments     []models.Assignment        `json:"assignments"`
	UniqueDeadlines []models.ExtractedDeadline `json:"uniqueDeadlines"`
	Status          string                     `json:"status"`
	Warning         string                     `json:"warning,omitempty"`
	// Selected is the number of deadlines the model kept before the temporal filter.
	Selected int `json:"selected"`
}

// DeduplicationService removes extracted deadlines already covered by assignments.
type DeduplicationService interface {
	Deduplicate(ctx context.Context, assignments []models.Assignment, extracted []models.ExtractedDeadline) DeduplicationResult
}

type deduplicationService struct {
	inferencer ai.Inferencer
	now        func() time.Time
	logger     zerolog.Logger
}

// NewDeduplicationService constructs the deduplicator. Without an inferencer it
// always fails open.
func NewDeduplicationService(inferencer ai.Inferencer, now func() time.Time, logger zerolog.Logger) DeduplicationService {
	if now == nil {
		now = time.Now
	}
	return &deduplicationService{
		inferencer: inferencer,
		now:        now,
		logger:     logger.With().Str("component", "deduplication_service").Logger(),
	}
}

func (s *deduplicationService) Deduplicate(ctx context.Context, assignments []models.Assignment, extracted []models.ExtractedDeadline) DeduplicationResult {
	result := DeduplicationResult{Assignments: assignments}

	switch {
	case len(extracted) == 0:
		result.UniqueDeadlines = []models.ExtractedDeadline{}
		result.Status = DedupStatusNoDeadlines
		return s.finish(result)
	case len(assignments) == 0:
		result.UniqueDeadlines = extracted
		result.Selected = len(extracted)
		result.Status = DedupStatusNoAssignments
		return s.finish(result)
	}

	response, err := s.infer(ctx, assignments, extracted)
	if err != nil {
		s.logger.Error().Err(err).Msg("deduplication call failed, keeping every extracted deadline")
		result.UniqueDeadlines = extracted
		result.Selected = len(extracted)
		result.Status = DedupStatusFailOpen
		result.Warning = fmt.Sprintf("deduplication skipped: %v", err)
		return s.finish(result)
	}

	verdict := ai.ParseIndices(response)
	if verdict.Err != nil {
		s.logger.Warn().Err(verdict.Err).Str("response", truncate(response, 200)).Msg("could not parse deduplication verdict")
	}

	selected := selectDeadlines(extracted, verdict.Indices)
	result.Selected = len(selected)
	result.UniqueDeadlines = FilterUpcoming(s.now(), selected)
	result.Status = DedupStatusDeduplicated

	s.logger.Info().
		Int("extracted", len(extracted)).
		Int("selected", len(selected)).
		Int("upcoming", len(result.UniqueDeadlines)).
		Msg("deduplicated extracted deadlines")
	return s.finish(result)
}

func (s *deduplicationService) infer(ctx context.Context, assignments []models.Assignment, extracted []models.ExtractedDeadline) (string, error) {
	if s.inferencer == nil {
		return "", ErrInferenceUnavailable
	}
	prompt, err := buildDeduplicationPrompt(assignments, extracted)
	if err != nil {
		return "", err
	}
	return s.inferencer.Infer(ctx, prompt)
}

func (s *deduplicationService) finish(result DeduplicationResult) DeduplicationResult {
	observability.PipelineStages().WithLabelValues("deduplication", result.Status).Inc()
	observability.DeadlinesKept().Add(float64(len(result.UniqueDeadlines)))
	return result
}

// selectDeadlines picks extracted deadlines by position in verdict order.
// Out-of-range and repeated positions are ignored.
func selectDeadlines(extracted []models.ExtractedDeadline, indices []int) []models.ExtractedDeadline {
	seen := make(map[int]struct{}, len(indices))
	selected := make([]models.ExtractedDeadline, 0, len(indices))
	for _, index := range indices {
		if index < 0 || index >= len(extracted) {
			continue
		}
		if _, dup := seen[index]; dup {
			continue
		}
		seen[index] = struct{}{}
		selected = append(selected, extracted[index])
	}
	return selected
}

func buildDeduplicationPrompt(assignments []models.Assignment, extracted []models.ExtractedDeadline) (string, error) {
	assignmentJSON, err := json.MarshalIndent(assignments, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode assignments: %w", err)
	}
	extractedJSON, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode extracted deadlines: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(`You compare a student's classroom assignments with deadlines extracted from announcements.

There are two lists with different structures:
1. ASSIGNMENTS, published formally in the classroom.
2. EXTRACTED DEADLINES, read from announcement text.

Keep every assignment. Remove only the extracted deadlines that duplicate an assignment; assignments always win.

An extracted deadline duplicates an assignment when it belongs to the same course and
- refers to the same piece of work, or has a very similar title, or
- has the same due date and time,
and the kind of work is compatible. A quiz and an exam on the same day are different events and are not duplicates.

ASSIGNMENTS:
`)
	builder.Write(assignmentJSON)
	builder.WriteString("\n\nEXTRACTED DEADLINES:\n")
	builder.Write(extractedJSON)
	builder.WriteString(`

Return only a JSON array with the 0-based positions of the extracted deadlines to KEEP because they duplicate no assignment.
For example [0, 2, 5] keeps the first, third and sixth extracted deadline. Return nothing else.
`)
	return builder.String(), nil
}

// truncate shortens value to at most limit runes.
func truncate(value string, limit int) string {
	runes := 0
	for i := range value {
		if runes == limit {
			return value[:i] + "..."
		}
		runes++
	}
	return value
}
