package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/internal/observability"
	"github.com/noah-isme/deadline-sync-api/internal/repository"
	"github.com/noah-isme/deadline-sync-api/pkg/calendar"
)

var (
	// ErrNoStoredAssignments is returned when assignments are synced before classwork was loaded.
	ErrNoStoredAssignments = errors.New("no assignments loaded for this session, fetch classwork first")
	// ErrNoStoredDeadlines is returned when deadlines are synced before announcements were processed.
	ErrNoStoredDeadlines = errors.New("no announcement deadlines loaded for this session, fetch announcements first")
)

// SyncCompletedSubject is the subject sync outcomes are published on.
const SyncCompletedSubject = "deadlines.sync.completed"

// Progress stages reported during a full sync.
const (
	StageFetchClasswork    = "fetch_classwork"
	StageExtractDeadlines  = "extract_deadlines"
	StageSyncAssignments   = "sync_assignments"
	StageSyncAnnouncements = "sync_announcements"
	StageCompleted         = "completed"
)

const (
	fullSyncSteps = 4

	createdEventAssignment   = "assignment"
	createdEventAnnouncement = "announcement"
	createdEventCustom       = "custom"
)

// CalendarAPI is the subset of the calendar client used for syncing.
type CalendarAPI interface {
	Insert(ctx context.Context, token string, event calendar.Event) (calendar.Event, error)
	Delete(ctx context.Context, token, eventID string) error
}

// EventPublisher publishes sync outcomes. *nats.Conn satisfies it.
type EventPublisher interface {
	Publish(subject string, data []byte) error
}

// ProgressEvent reports how far a full sync has come.
type ProgressEvent struct {
	Step       int    `json:"step"`
	TotalSteps int    `json:"total_steps"`
	Stage      string `json:"stage"`
	Message    string `json:"message"`
	Completed  bool   `json:"completed"`
}

// ProgressFunc receives progress events. It must not block.
type ProgressFunc func(ProgressEvent)

// PipelineStats summarises one announcement pipeline run.
type PipelineStats struct {
	TotalAnnouncements int `json:"total_announcements"`
	DeadlinesFound     int `json:"deadlines_found"`
	UniqueDeadlines    int `json:"unique_deadlines"`
	DuplicatesRemoved  int `json:"duplicates_removed"`
	PastDropped        int `json:"past_deadlines_dropped"`
}

// PipelineResult is the outcome of loading announcement deadlines.
type PipelineResult struct {
	Announcements      []models.Announcement      `json:"announcements"`
	ExtractedDeadlines []models.ExtractedDeadline `json:"extracted_deadlines"`
	Stats              PipelineStats              `json:"stats"`
	ExtractionStatus   string                     `json:"extraction_status"`
	DedupStatus        string                     `json:"dedup_status"`
	Warnings           []string                   `json:"warnings,omitempty"`
}

// SyncedEvent links a synced record to the calendar event created for it.
type SyncedEvent struct {
	Title      string `json:"title"`
	CalendarID string `json:"calendar_id"`
	Source     string `json:"source,omitempty"`
}

// SyncResult reports a batch calendar sync.
type SyncResult struct {
	Kind          string                `json:"kind"`
	Total         int                   `json:"total"`
	Success       int                   `json:"success"`
	Failed        int                   `json:"failed"`
	SkippedPast   int                   `json:"skipped_past_events"`
	Events        []SyncedEvent         `json:"events"`
	CreatedEvents []models.CreatedEvent `json:"created_events"`
	RunID         uint                  `json:"run_id,omitempty"`
}

// FullSyncResult reports every step of SyncAll.
type FullSyncResult struct {
	Classwork     []models.Assignment   `json:"classwork"`
	Announcements PipelineResult        `json:"announcements"`
	Assignments   SyncResult            `json:"assignment_sync"`
	Deadlines     SyncResult            `json:"announcement_sync"`
	Events        []models.CreatedEvent `json:"calendar_events"`
}

// CustomEventInput describes a user-defined calendar event.
type CustomEventInput struct {
	Title       string
	Description string
	Date        string
	Time        string
}

// SyncService orchestrates fetching, the deadline pipeline and calendar writes.
type SyncService interface {
	LoadClasswork(ctx context.Context, session models.Session) ([]models.Assignment, error)
	LoadAnnouncementDeadlines(ctx context.Context, session models.Session) (PipelineResult, error)
	SyncAssignments(ctx context.Context, session models.Session) (SyncResult, error)
	SyncAnnouncements(ctx context.Context, session models.Session) (SyncResult, error)
	SyncAll(ctx context.Context, session models.Session, progress ProgressFunc) (FullSyncResult, error)
	CreateEvent(ctx context.Context, session models.Session, input CustomEventInput) (models.CreatedEvent, error)
	DeleteEvent(ctx context.Context, session models.Session, eventID string) error
}

// SyncDependencies groups the collaborators of the sync service.
type SyncDependencies struct {
	Sessions   SessionStore
	Classroom  ClassroomFetcher
	Extraction ExtractionService
	Dedup      DeduplicationService
	Calendar   CalendarAPI
	Builder    EventBuilder
	Runs       repository.SyncRunRepository
	Publisher  EventPublisher
	Now        func() time.Time
}

type syncService struct {
	deps   SyncDependencies
	now    func() time.Time
	logger zerolog.Logger
}

// NewSyncService wires the sync orchestration. Runs and Publisher are optional.
func NewSyncService(deps SyncDependencies, logger zerolog.Logger) SyncService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &syncService{
		deps:   deps,
		now:    now,
		logger: logger.With().Str("component", "sync_service").Logger(),
	}
}

func (s *syncService) LoadClasswork(ctx context.Context, session models.Session) ([]models.Assignment, error) {
	assignments, err := s.deps.Classroom.Assignments(ctx, session.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch classwork: %w", err)
	}

	session.Assignments = assignments
	session.ClassworkLoaded = true
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *syncService) LoadAnnouncementDeadlines(ctx context.Context, session models.Session) (PipelineResult, error) {
	announcements, err := s.deps.Classroom.Announcements(ctx, session.AccessToken)
	if err != nil {
		return PipelineResult{}, fmt.Errorf("fetch announcements: %w", err)
	}

	if !session.ClassworkLoaded {
		assignments, err := s.deps.Classroom.Assignments(ctx, session.AccessToken)
		if err != nil {
			s.logger.Warn().Err(err).Msg("could not fetch classwork for deduplication, continuing without it")
		} else {
			session.Assignments = assignments
			session.ClassworkLoaded = true
		}
	}

	result, err := s.runPipeline(ctx, session.Assignments, announcements)
	if err != nil {
		return PipelineResult{}, err
	}

	session.Deadlines = result.ExtractedDeadlines
	session.DeadlinesLoaded = true
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return PipelineResult{}, err
	}
	return result, nil
}

// runPipeline extracts, deduplicates and applies the temporal filter. The
// filter runs on every path so a fail-open result never contains past deadlines.
func (s *syncService) runPipeline(ctx context.Context, assignments []models.Assignment, announcements []models.Announcement) (PipelineResult, error) {
	extraction, err := s.deps.Extraction.Extract(ctx, announcements)
	if err != nil {
		return PipelineResult{}, err
	}

	dedup := s.deps.Dedup.Deduplicate(ctx, assignments, extraction.Deadlines)
	unique := FilterUpcoming(s.now(), dedup.UniqueDeadlines)

	warnings := append([]string{}, extraction.Warnings...)
	if dedup.Warning != "" {
		warnings = append(warnings, dedup.Warning)
	}

	return PipelineResult{
		Announcements:      announcements,
		ExtractedDeadlines: unique,
		Stats: PipelineStats{
			TotalAnnouncements: len(announcements),
			DeadlinesFound:     len(extraction.Deadlines),
			UniqueDeadlines:    len(unique),
			DuplicatesRemoved:  len(extraction.Deadlines) - dedup.Selected,
			PastDropped:        dedup.Selected - len(unique),
		},
		ExtractionStatus: extraction.Status,
		DedupStatus:      dedup.Status,
		Warnings:         warnings,
	}, nil
}

func (s *syncService) SyncAssignments(ctx context.Context, session models.Session) (SyncResult, error) {
	if !session.ClassworkLoaded {
		return SyncResult{}, ErrNoStoredAssignments
	}
	return s.syncAssignments(ctx, session, session.Assignments), nil
}

func (s *syncService) SyncAnnouncements(ctx context.Context, session models.Session) (SyncResult, error) {
	if !session.DeadlinesLoaded {
		return SyncResult{}, ErrNoStoredDeadlines
	}
	return s.syncDeadlines(ctx, session, session.Deadlines), nil
}

func (s *syncService) SyncAll(ctx context.Context, session models.Session, progress ProgressFunc) (FullSyncResult, error) {
	report := func(step int, stage, message string) {
		if progress != nil {
			progress(ProgressEvent{Step: step, TotalSteps: fullSyncSteps, Stage: stage, Message: message, Completed: stage == StageCompleted})
		}
	}

	report(1, StageFetchClasswork, "Fetching assignments from the classroom")
	classwork, err := s.LoadClasswork(ctx, session)
	if err != nil {
		return FullSyncResult{}, err
	}
	session.Assignments = classwork
	session.ClassworkLoaded = true

	report(2, StageExtractDeadlines, "Fetching announcements and extracting deadlines")
	pipeline, err := s.LoadAnnouncementDeadlines(ctx, session)
	if err != nil {
		return FullSyncResult{}, err
	}
	session.Deadlines = pipeline.ExtractedDeadlines
	session.DeadlinesLoaded = true

	report(3, StageSyncAssignments, "Syncing assignments to the calendar")
	assignmentSync := s.syncAssignments(ctx, session, classwork)

	report(4, StageSyncAnnouncements, "Syncing announcement deadlines to the calendar")
	deadlineSync := s.syncDeadlines(ctx, session, pipeline.ExtractedDeadlines)

	events := make([]models.CreatedEvent, 0, len(assignmentSync.CreatedEvents)+len(deadlineSync.CreatedEvents))
	events = append(events, assignmentSync.CreatedEvents...)
	events = append(events, deadlineSync.CreatedEvents...)

	report(fullSyncSteps, StageCompleted, fmt.Sprintf("Created %d calendar events", len(events)))
	return FullSyncResult{
		Classwork:     classwork,
		Announcements: pipeline,
		Assignments:   assignmentSync,
		Deadlines:     deadlineSync,
		Events:        events,
	}, nil
}

func (s *syncService) syncAssignments(ctx context.Context, session models.Session, assignments []models.Assignment) SyncResult {
	sources := make([]EventSource, len(assignments))
	for i, assignment := range assignments {
		sources[i] = SourceFromAssignment(assignment)
	}
	return s.syncSources(ctx, session, models.SyncKindAssignments, sources)
}

func (s *syncService) syncDeadlines(ctx context.Context, session models.Session, deadlines []models.ExtractedDeadline) SyncResult {
	sources := make([]EventSource, len(deadlines))
	for i, deadline := range deadlines {
		sources[i] = SourceFromDeadline(deadline)
	}
	return s.syncSources(ctx, session, models.SyncKindAnnouncements, sources)
}

// syncSources writes one event per record. A failing record is counted and
// never stops the rest of the batch.
func (s *syncService) syncSources(ctx context.Context, session models.Session, kind string, sources []EventSource) SyncResult {
	result := SyncResult{
		Kind:          kind,
		Total:         len(sources),
		Events:        []SyncedEvent{},
		CreatedEvents: []models.CreatedEvent{},
	}
	createdType := createdEventAssignment
	if kind == models.SyncKindAnnouncements {
		createdType = createdEventAnnouncement
	}

	now := s.now()
	for _, source := range sources {
		logger := s.logger.With().Str("kind", kind).Str("title", source.Title).Logger()

		if strings.TrimSpace(source.DueDate) == "" {
			result.Failed++
			logger.Warn().Msg("record has no due date")
			continue
		}

		event, err := s.deps.Builder.Build(source)
		if err != nil {
			result.Failed++
			logger.Warn().Err(err).Msg("could not build calendar event")
			continue
		}

		if !IsUpcoming(now, dueInstantOf(source)) {
			result.SkippedPast++
			continue
		}

		created, err := s.deps.Calendar.Insert(ctx, session.AccessToken, event)
		if err != nil {
			result.Failed++
			observability.CalendarEvents().WithLabelValues(kind, "failed").Inc()
			logger.Error().Err(err).Msg("calendar insert failed")
			continue
		}

		observability.CalendarEvents().WithLabelValues(kind, "created").Inc()
		result.Success++
		synced := SyncedEvent{Title: source.Title, CalendarID: created.ID}
		if source.FromAnnouncement {
			synced.Source = models.SourceAnnouncement
		}
		result.Events = append(result.Events, synced)
		result.CreatedEvents = append(result.CreatedEvents, toCreatedEvent(created, createdType, source.CourseName))
	}

	s.record(ctx, session, &result)
	s.logger.Info().
		Str("kind", kind).
		Int("total", result.Total).
		Int("success", result.Success).
		Int("failed", result.Failed).
		Int("skipped_past", result.SkippedPast).
		Msg("calendar sync finished")
	return result
}

// dueInstantOf mirrors the due semantics of the record an event source came from.
func dueInstantOf(source EventSource) models.DueInstant {
	due := models.DueInstant{Date: source.DueDate, Time: source.DueTime}
	if !source.FromAnnouncement && source.DueTime != "" {
		due.Location = time.UTC
	}
	return due
}

// record persists the run and announces it. Failures are logged only.
func (s *syncService) record(ctx context.Context, session models.Session, result *SyncResult) {
	events, err := json.Marshal(result.Events)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not encode synced events")
		events = []byte("[]")
	}

	run := models.SyncRun{
		SessionID:   session.ID,
		Kind:        result.Kind,
		Total:       result.Total,
		Success:     result.Success,
		Failed:      result.Failed,
		SkippedPast: result.SkippedPast,
		Events:      datatypes.JSON(events),
		CreatedAt:   s.now().UTC(),
	}

	if s.deps.Runs != nil {
		if err := s.deps.Runs.Create(ctx, &run); err != nil {
			s.logger.Warn().Err(err).Msg("could not persist sync run")
		} else {
			result.RunID = run.ID
		}
	}

	if s.deps.Publisher != nil {
		payload, err := json.Marshal(run)
		if err == nil {
			err = s.deps.Publisher.Publish(SyncCompletedSubject, payload)
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("could not publish sync completion")
		}
	}
}

func (s *syncService) CreateEvent(ctx context.Context, session models.Session, input CustomEventInput) (models.CreatedEvent, error) {
	event, err := s.deps.Builder.BuildCustom(input.Title, input.Description, input.Date, input.Time)
	if err != nil {
		return models.CreatedEvent{}, err
	}

	created, err := s.deps.Calendar.Insert(ctx, session.AccessToken, event)
	if err != nil {
		observability.CalendarEvents().WithLabelValues(createdEventCustom, "failed").Inc()
		return models.CreatedEvent{}, fmt.Errorf("create calendar event: %w", err)
	}
	observability.CalendarEvents().WithLabelValues(createdEventCustom, "created").Inc()
	return toCreatedEvent(created, createdEventCustom, ""), nil
}

func (s *syncService) DeleteEvent(ctx context.Context, session models.Session, eventID string) error {
	if err := s.deps.Calendar.Delete(ctx, session.AccessToken, eventID); err != nil {
		observability.CalendarEvents().WithLabelValues("delete", "failed").Inc()
		return fmt.Errorf("delete calendar event: %w", err)
	}
	observability.CalendarEvents().WithLabelValues("delete", "deleted").Inc()
	return nil
}

func toCreatedEvent(event calendar.Event, kind, courseName string) models.CreatedEvent {
	return models.CreatedEvent{
		ID:          event.ID,
		Summary:     event.Summary,
		Description: event.Description,
		Start:       models.EventTime(event.Start),
		End:         models.EventTime(event.End),
		HTMLLink:    event.HTMLLink,
		Type:        kind,
		CourseName:  courseName,
	}
}
