package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/internal/observability"
	"github.com/noah-isme/deadline-sync-api/pkg/ai"
)

var (
	angleSegment = regexp.MustCompile(`<[^<>]*>`)
	markupTag    = regexp.MustCompile(`(?i)^</?(a|b|blockquote|br|code|div|em|h[1-6]|hr|i|img|li|ol|p|pre|s|small|span|strong|sub|sup|table|tbody|td|th|thead|tr|u|ul)(\s[^<>]*)?/?>$`)
)

// ErrInferenceUnavailable is returned when no inference credential was configured.
var ErrInferenceUnavailable = errors.New("inference service is not configured")

// Extraction statuses.
const (
	ExtractionStatusOK              = "ok"
	ExtractionStatusNoAnnouncements = "no_announcements"
	ExtractionStatusNoneRelevant    = "none_relevant"
	ExtractionStatusInferenceFailed = "inference_failed"
)

// ExtractionResult carries the extracted deadlines together with how the run went.
type ExtractionResult struct {
	Deadlines     []models.ExtractedDeadline `json:"deadlines"`
	Status        string                     `json:"status"`
	Warnings      []string                   `json:"warnings,omitempty"`
	Considered    int                        `json:"considered"`
	Relevant      int                        `json:"relevant"`
	Candidates    int                        `json:"candidates"`
	Dropped       int                        `json:"dropped"`
	ParseFallback bool                       `json:"parseFallback"`
}

// ExtractionService turns announcement text into dated deadlines.
type ExtractionService interface {
	Extract(ctx context.Context, announcements []models.Announcement) (ExtractionResult, error)
}

type extractionService struct {
	inferencer ai.Inferencer
	policy     *bluemonday.Policy
	now        func() time.Time
	logger     zerolog.Logger
}

// NewExtractionService constructs the extraction service. A nil inferencer makes
// every non-empty extraction fail with ErrInferenceUnavailable.
func NewExtractionService(inferencer ai.Inferencer, now func() time.Time, logger zerolog.Logger) ExtractionService {
	if now == nil {
		now = time.Now
	}
	return &extractionService{
		inferencer: inferencer,
		policy:     bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true),
		now:        now,
		logger:     logger.With().Str("component", "extraction_service").Logger(),
	}
}

func (s *extractionService) Extract(ctx context.Context, announcements []models.Announcement) (ExtractionResult, error) {
	if s.inferencer == nil {
		return ExtractionResult{}, ErrInferenceUnavailable
	}

	result := ExtractionResult{
		Deadlines:  []models.ExtractedDeadline{},
		Considered: len(announcements),
	}
	if len(announcements) == 0 {
		result.Status = ExtractionStatusNoAnnouncements
		return s.finish(result), nil
	}

	relevant := FilterRelevantAnnouncements(s.logger, announcements)
	result.Relevant = len(relevant)
	if len(relevant) == 0 {
		result.Status = ExtractionStatusNoneRelevant
		return s.finish(result), nil
	}

	prompt := s.buildPrompt(relevant)
	response, err := s.inferencer.Infer(ctx, prompt)
	if err != nil {
		s.logger.Error().Err(err).Int("batch_size", len(relevant)).Msg("deadline extraction call failed")
		result.Status = ExtractionStatusInferenceFailed
		result.Warnings = append(result.Warnings, fmt.Sprintf("inference call failed: %v", err))
		return s.finish(result), nil
	}

	parsed := ai.ParseObjects(response)
	if parsed.Fallback {
		result.ParseFallback = true
		result.Warnings = append(result.Warnings, "model output was not a clean json array; objects were recovered individually")
		s.logger.Warn().Err(parsed.ParseErr).Int("recovered", len(parsed.Objects)).Msg("fell back to object scan")
	}

	result.Candidates = len(parsed.Objects)
	for _, object := range parsed.Objects {
		deadline, reason := admitCandidate(object, relevant)
		if reason != "" {
			result.Dropped++
			s.logger.Debug().Str("reason", reason).Interface("candidate", object).Msg("dropped candidate")
			continue
		}
		s.logger.Debug().Str("title", deadline.Title).Str("due_date", deadline.DueDate).Msg("found deadline")
		result.Deadlines = append(result.Deadlines, deadline)
	}

	result.Status = ExtractionStatusOK
	return s.finish(result), nil
}

func (s *extractionService) finish(result ExtractionResult) ExtractionResult {
	observability.PipelineStages().WithLabelValues("extraction", result.Status).Inc()
	observability.DeadlinesExtracted().Add(float64(len(result.Deadlines)))

	s.logger.Info().
		Str("status", result.Status).
		Int("considered", result.Considered).
		Int("relevant", result.Relevant).
		Int("candidates", result.Candidates).
		Int("dropped", result.Dropped).
		Int("deadlines", len(result.Deadlines)).
		Msg("deadline extraction finished")
	return result
}

// admitCandidate decodes one model object and applies the range check and the
// gate. A non-empty reason means the candidate was dropped.
func admitCandidate(object map[string]any, batch []models.Announcement) (models.ExtractedDeadline, string) {
	candidate, err := decodeCandidate(object)
	if err != nil {
		return models.ExtractedDeadline{}, err.Error()
	}
	if candidate.AnnouncementIndex < 1 || candidate.AnnouncementIndex > len(batch) {
		return models.ExtractedDeadline{}, "announcement number out of range"
	}
	if candidate.DueDate == nil {
		return models.ExtractedDeadline{}, "no due date"
	}
	if !candidate.PassesGate() {
		return models.ExtractedDeadline{}, "low confidence"
	}

	source := batch[candidate.AnnouncementIndex-1]
	return models.ExtractedDeadline{
		AnnouncementIndex: candidate.AnnouncementIndex,
		Title:             candidate.Title,
		DueDate:           *candidate.DueDate,
		DueTime:           candidate.DueTime,
		Description:       candidate.Description,
		EventType:         candidate.EventType,
		Confidence:        candidate.Confidence,
		CourseName:        source.CourseName,
		Source:            models.SourceAnnouncement,
	}, ""
}

// decodeCandidate reads a loosely typed model object. Numbers may arrive as
// strings and nulls as the literal text "null".
func decodeCandidate(object map[string]any) (models.CandidateDeadline, error) {
	candidate := models.CandidateDeadline{
		Title:       stringField(object, "title"),
		DueDate:     nullableString(object["dueDate"]),
		DueTime:     nullableString(object["dueTime"]),
		Description: stringField(object, "description"),
		EventType:   models.ParseEventType(stringField(object, "eventType")),
	}

	if raw, ok := object["announcementNumber"]; ok && raw != nil {
		number, ok := toNumber(raw)
		if !ok || number != math.Trunc(number) {
			return models.CandidateDeadline{}, errors.New("invalid announcement number")
		}
		candidate.AnnouncementIndex = int(number)
	}

	if raw, ok := object["confidence"]; ok && raw != nil {
		confidence, ok := toNumber(raw)
		if !ok {
			return models.CandidateDeadline{}, errors.New("invalid confidence")
		}
		candidate.Confidence = confidence
	}

	return candidate, nil
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func stringField(object map[string]any, key string) string {
	value, _ := object[key].(string)
	return strings.TrimSpace(value)
}

func nullableString(value any) *string {
	text, ok := value.(string)
	if !ok {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "null") {
		return nil
	}
	return &text
}

func (s *extractionService) buildPrompt(announcements []models.Announcement) string {
	var builder strings.Builder
	builder.WriteString("You are an assistant that reads classroom announcements and extracts deadlines a student can put on a calendar.\n\n")
	builder.WriteString("For each announcement decide whether it announces a schedulable event such as an assignment, quiz, exam, test, homework, report, submission or project.\n")
	fmt.Fprintf(&builder, "Today is %s.\n", s.now().Format("Monday, 2006-01-02"))

	for i, announcement := range announcements {
		creation := strings.TrimSpace(announcement.CreationTime)
		if creation == "" {
			creation = "unknown time"
		}
		fmt.Fprintf(&builder, "\nANNOUNCEMENT %d:\n", i+1)
		fmt.Fprintf(&builder, "Course: %q\n", announcement.CourseName)
		fmt.Fprintf(&builder, "Created at: %s\n", creation)
		fmt.Fprintf(&builder, "Text: %q\n", s.clean(announcement.Text))
	}

	builder.WriteString(`
Return a JSON array with one object per announcement that contains a deadline:
[
  {
    "announcementNumber": 1,
    "title": "short title for the event",
    "dueDate": "YYYY-MM-DD if any date is mentioned, otherwise null",
    "dueTime": "HH:MM in 24-hour format if a time is mentioned, otherwise null",
    "description": "one sentence describing the deadline",
    "eventType": "Assignment, Quiz, Exam, Project, or Other",
    "confidence": 0.0
  }
]

Rules:
1. Watch for phrases such as "due by", "submit by", "deadline" and "due date".
2. Convert relative dates such as "tomorrow" or "next Friday" into absolute dates using the creation time of the announcement.
3. When a date has no year, use the current year.
4. When several announcements of the same course describe the same event, return a single entry for the latest one.
5. Skip administrative notes that are not deadlines, for example reminders to bring stationery.
6. confidence is a number between 0 and 1.

Return only the JSON array, without explanations.
`)
	return builder.String()
}

// clean strips HTML formatting from announcement text. Bracketed segments that
// are not markup, such as "<Friday 5pm>", are kept verbatim.
func (s *extractionService) clean(text string) string {
	if !strings.ContainsRune(text, '<') {
		return strings.TrimSpace(text)
	}

	markup := false
	escaped := angleSegment.ReplaceAllStringFunc(text, func(segment string) string {
		if markupTag.MatchString(segment) {
			markup = true
			return segment
		}
		return html.EscapeString(segment)
	})
	if !markup {
		return strings.TrimSpace(text)
	}
	return strings.Join(strings.Fields(html.UnescapeString(s.policy.Sanitize(escaped))), " ")
}
