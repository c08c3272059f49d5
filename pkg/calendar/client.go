package calendar

import (
	"bytes"
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

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// ErrUnauthorized is returned when the access token was rejected.
var ErrUnauthorized = errors.New("calendar rejected the access token")

// EventTime is the start or end of an event. Date is set for all-day events,
// DateTime and TimeZone for timed ones.
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Event is a calendar event resource.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	ColorID     string    `json:"colorId,omitempty"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
}

// APIError carries a non-success response from the calendar API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api returned status %d: %s", e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	BaseURL    string
	CalendarID string
	Timeout    time.Duration
}

// Client writes events to a user's calendar.
type Client struct {
	baseURL    string
	calendarID string
	http       *http.Client
}

// NewClient returns a client for the primary calendar unless another is configured.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		calendarID: cfg.CalendarID,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Insert creates the event and returns the stored resource.
func (c *Client) Insert(ctx context.Context, token string, event Event) (Event, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return Event{}, fmt.Errorf("encode event: %w", err)
	}

	resp, err := c.do(ctx, token, http.MethodPost, c.eventsURL(), bytes.NewReader(body))
	if err != nil {
		return Event{}, err
	}
	defer resp.Body.Close()

	var created Event
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Event{}, fmt.Errorf("decode created event: %w", err)
	}
	return created, nil
}

// Delete removes an event by identifier.
func (c *Client) Delete(ctx context.Context, token, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return errors.New("event id is required")
	}
	resp, err := c.do(ctx, token, http.MethodDelete, c.eventsURL()+"/"+url.PathEscape(eventID), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) eventsURL() string {
	return fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
}

func (c *Client) do(ctx context.Context, token, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create calendar request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, ErrUnauthorized
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return resp, nil
}
