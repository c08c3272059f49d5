package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/pkg/classroom"
)

// ClassroomAPI is the subset of the classroom client the fetcher relies on.
type ClassroomAPI interface {
	ListCourses(ctx context.Context, token string) ([]classroom.Course, error)
	ListCourseWork(ctx context.Context, token, courseID string) ([]classroom.CourseWork, error)
	ListAnnouncements(ctx context.Context, token, courseID string) ([]classroom.Announcement, error)
}

// ClassroomFetcher reads the current term's assignments and announcements.
type ClassroomFetcher interface {
	Assignments(ctx context.Context, token string) ([]models.Assignment, error)
	Announcements(ctx context.Context, token string) ([]models.Announcement, error)
}

// ClassroomFetcherConfig tunes the fetcher.
type ClassroomFetcherConfig struct {
	// Cutoff excludes courses created on or before it.
	Cutoff      time.Time
	Concurrency int
	Now         func() time.Time
}

type classroomFetcher struct {
	api         ClassroomAPI
	cutoff      time.Time
	concurrency int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewClassroomFetcher constructs a fetcher over the classroom API.
func NewClassroomFetcher(api ClassroomAPI, cfg ClassroomFetcherConfig, logger zerolog.Logger) ClassroomFetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &classroomFetcher{
		api:         api,
		cutoff:      cfg.Cutoff,
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
		logger:      logger.With().Str("component", "classroom_fetcher").Logger(),
	}
}

// Assignments returns upcoming coursework with a due date, in course order.
func (f *classroomFetcher) Assignments(ctx context.Context, token string) ([]models.Assignment, error) {
	courses, err := f.termCourses(ctx, token)
	if err != nil {
		return nil, err
	}

	now := f.now()
	perCourse := make([][]models.Assignment, len(courses))
	err = f.forEachCourse(ctx, courses, func(ctx context.Context, i int, course classroom.Course) error {
		work, err := f.api.ListCourseWork(ctx, token, course.ID)
		if err != nil {
			return err
		}
		shaped := make([]models.Assignment, 0, len(work))
		for _, item := range work {
			if assignment, ok := shapeAssignment(item, course.Name, now.Location()); ok {
				shaped = append(shaped, assignment)
			}
		}
		perCourse[i] = shaped
		return nil
	})
	if err != nil {
		return nil, err
	}

	assignments := make([]models.Assignment, 0)
	for _, items := range perCourse {
		assignments = append(assignments, items...)
	}
	upcoming := FilterUpcoming(now, assignments)

	f.logger.Info().Int("courses", len(courses)).Int("fetched", len(assignments)).Int("upcoming", len(upcoming)).Msg("fetched classwork")
	return upcoming, nil
}

// Announcements returns the announcements of every current course, in course order.
func (f *classroomFetcher) Announcements(ctx context.Context, token string) ([]models.Announcement, error) {
	courses, err := f.termCourses(ctx, token)
	if err != nil {
		return nil, err
	}

	perCourse := make([][]models.Announcement, len(courses))
	err = f.forEachCourse(ctx, courses, func(ctx context.Context, i int, course classroom.Course) error {
		items, err := f.api.ListAnnouncements(ctx, token, course.ID)
		if err != nil {
			return err
		}
		shaped := make([]models.Announcement, 0, len(items))
		for _, item := range items {
			shaped = append(shaped, models.Announcement{
				Text:         item.Text,
				CourseName:   course.Name,
				CreationTime: item.CreationTime,
			})
		}
		perCourse[i] = shaped
		return nil
	})
	if err != nil {
		return nil, err
	}

	announcements := make([]models.Announcement, 0)
	for _, items := range perCourse {
		announcements = append(announcements, items...)
	}
	f.logger.Info().Int("courses", len(courses)).Int("announcements", len(announcements)).Msg("fetched announcements")
	return announcements, nil
}

func (f *classroomFetcher) termCourses(ctx context.Context, token string) ([]classroom.Course, error) {
	courses, err := f.api.ListCourses(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	current := make([]classroom.Course, 0, len(courses))
	for _, course := range courses {
		created, err := course.Created()
		if err != nil {
			continue
		}
		if created.After(f.cutoff) {
			current = append(current, course)
		}
	}
	if len(current) == 0 {
		f.logger.Info().Int("courses", len(courses)).Msg("no courses in the current term")
	}
	return current, nil
}

// forEachCourse runs fn for every course with bounded concurrency. A failing
// course is logged and skipped; only cancellation of ctx aborts the walk.
func (f *classroomFetcher) forEachCourse(ctx context.Context, courses []classroom.Course, fn func(context.Context, int, classroom.Course) error) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.concurrency)

	for i, course := range courses {
		group.Go(func() error {
			if err := fn(groupCtx, i, course); err != nil {
				if ctxErr := groupCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				f.logger.Warn().Err(err).Str("course", course.Name).Msg("skipping course")
			}
			return nil
		})
	}
	return group.Wait()
}

// shapeAssignment converts coursework into an assignment. Work without a due
// date is skipped. Due times stay in UTC; the local rendering is informational.
func shapeAssignment(work classroom.CourseWork, courseName string, local *time.Location) (models.Assignment, bool) {
	if work.DueDate == nil {
		return models.Assignment{}, false
	}

	assignment := models.Assignment{
		Title:       work.Title,
		Description: work.Description,
		CourseName:  courseName,
		WorkType:    work.WorkType,
		DueDate:     fmt.Sprintf("%04d-%02d-%02d", work.DueDate.Year, work.DueDate.Month, work.DueDate.Day),
	}

	if work.DueTime != nil {
		assignment.DueTime = fmt.Sprintf("%02d:%02d", work.DueTime.Hours, work.DueTime.Minutes)
		assignment.DueTimeUTC = true

		due := time.Date(work.DueDate.Year, time.Month(work.DueDate.Month), work.DueDate.Day,
			work.DueTime.Hours, work.DueTime.Minutes, 0, 0, time.UTC).In(local)
		zone, _ := due.Zone()
		assignment.LocalDueTime = due.Format(dueTimeLayout)
		assignment.LocalTimezone = zone
	}
	return assignment, true
}
