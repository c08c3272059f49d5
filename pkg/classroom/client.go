package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://classroom.googleapis.com/v1"

// ErrUnauthorized is returned when the access token was rejected.
var ErrUnauthorized = errors.New("classroom rejected the access token")

// Course is a classroom course the user belongs to.
type Course struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CreationTime string `json:"creationTime"`
}

// Created parses the course creation timestamp.
func (c Course) Created() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, c.CreationTime)
}

// Date is a calendar date without a zone.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// TimeOfDay is a UTC wall-clock time.
type TimeOfDay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// CourseWork is a graded or ungraded work item of a course.
type CourseWork struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	WorkType    string     `json:"workType"`
	DueDate     *Date      `json:"dueDate,omitempty"`
	DueTime     *TimeOfDay `json:"dueTime,omitempty"`
}

// Announcement is a post on a course stream.
type Announcement struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	CreationTime string `json:"creationTime"`
}

// APIError carries a non-success response from the classroom API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("classroom api returned status %d: %s", e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client reads courses, coursework and announcements on behalf of a user.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a classroom client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ListCourses returns every course visible to the token owner.
func (c *Client) ListCourses(ctx context.Context, token string) ([]Course, error) {
	var courses []Course
	err := c.paginate(ctx, token, "/courses", func(page json.RawMessage) (string, error) {
		var body struct {
			Courses       []Course `json:"courses"`
			NextPageToken string   `json:"nextPageToken"`
		}
		if err := json.Unmarshal(page, &body); err != nil {
			return "", err
		}
		courses = append(courses, body.Courses...)
		return body.NextPageToken, nil
	})
	return courses, err
}

// ListCourseWork returns the coursework of one course.
func (c *Client) ListCourseWork(ctx context.Context, token, courseID string) ([]CourseWork, error) {
	var work []CourseWork
	path := "/courses/" + url.PathEscape(courseID) + "/courseWork"
	err := c.paginate(ctx, token, path, func(page json.RawMessage) (string, error) {
		var body struct {
			CourseWork    []CourseWork `json:"courseWork"`
			NextPageToken string       `json:"nextPageToken"`
		}
		if err := json.Unmarshal(page, &body); err != nil {
			return "", err
		}
		work = append(work, body.CourseWork...)
		return body.NextPageToken, nil
	})
	return work, err
}

// ListAnnouncements returns the announcements of one course.
func (c *Client) ListAnnouncements(ctx context.Context, token, courseID string) ([]Announcement, error) {
	var announcements []Announcement
	path := "/courses/" + url.PathEscape(courseID) + "/announcements"
	err := c.paginate(ctx, token, path, func(page json.RawMessage) (string, error) {
		var body struct {
			Announcements []Announcement `json:"announcements"`
			NextPageToken string         `json:"nextPageToken"`
		}
		if err := json.Unmarshal(page, &body); err != nil {
			return "", err
		}
		announcements = append(announcements, body.Announcements...)
		return body.NextPageToken, nil
	})
	return announcements, err
}

// paginate walks nextPageToken links, handing each raw page to collect.
func (c *Client) paginate(ctx context.Context, token, path string, collect func(json.RawMessage) (string, error)) error {
	pageToken := ""
	for {
		target := c.baseURL + path
		if pageToken != "" {
			target += "?pageToken=" + url.QueryEscape(pageToken)
		}

		page, err := c.get(ctx, token, target)
		if err != nil {
			return err
		}
		next, err := collect(page)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if next == "" {
			return nil
		}
		pageToken = next
	}
}

func (c *Client) get(ctx context.Context, token, target string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create classroom request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classroom request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read classroom response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return payload, nil
}
