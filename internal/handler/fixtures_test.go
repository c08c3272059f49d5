package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/deadline-sync-api/internal/config"
	"github.com/noah-isme/deadline-sync-api/internal/database"
	"github.com/noah-isme/deadline-sync-api/internal/handler"
	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/internal/repository"
	"github.com/noah-isme/deadline-sync-api/internal/router"
	"github.com/noah-isme/deadline-sync-api/internal/service"
)

const testSecret = "test-secret"

var dbName = strings.NewReplacer("/", "_", " ", "_")

type syncServiceStub struct {
	loadClasswork     func(models.Session) ([]models.Assignment, error)
	loadAnnouncements func(models.Session) (service.PipelineResult, error)
	syncAssignments   func(models.Session) (service.SyncResult, error)
	syncAnnouncements func(models.Session) (service.SyncResult, error)
	syncAll           func(models.Session, service.ProgressFunc) (service.FullSyncResult, error)
	createEvent       func(models.Session, service.CustomEventInput) (models.CreatedEvent, error)
	deleteEvent       func(models.Session, string) error
}

func (s *syncServiceStub) LoadClasswork(_ context.Context, session models.Session) ([]models.Assignment, error) {
	return s.loadClasswork(session)
}

func (s *syncServiceStub) LoadAnnouncementDeadlines(_ context.Context, session models.Session) (service.PipelineResult, error) {
	return s.loadAnnouncements(session)
}

func (s *syncServiceStub) SyncAssignments(_ context.Context, session models.Session) (service.SyncResult, error) {
	return s.syncAssignments(session)
}

func (s *syncServiceStub) SyncAnnouncements(_ context.Context, session models.Session) (service.SyncResult, error) {
	return s.syncAnnouncements(session)
}

func (s *syncServiceStub) SyncAll(_ context.Context, session models.Session, progress service.ProgressFunc) (service.FullSyncResult, error) {
	return s.syncAll(session, progress)
}

func (s *syncServiceStub) CreateEvent(_ context.Context, session models.Session, input service.CustomEventInput) (models.CreatedEvent, error) {
	return s.createEvent(session, input)
}

func (s *syncServiceStub) DeleteEvent(_ context.Context, session models.Session, eventID string) error {
	return s.deleteEvent(session, eventID)
}

type testServer struct {
	app      *fiber.App
	sessions service.SessionStore
	runs     repository.SyncRunRepository
	redis    *miniredis.Miniredis
}

func newTestServer(t *testing.T, syncSvc service.SyncService) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db, err := gorm.Open(sqlite.Open("file:"+dbName.Replace(t.Name())+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.New(io.Discard)
	sessions := service.NewSessionStore(client, time.Hour, logger)
	runs := repository.NewSyncRunRepository(db)
	validate := handler.NewValidator()

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Deadline Sync API", AppEnv: "test", AIProvider: "gemini"}, router.Dependencies{
		SessionHandler:       handler.NewSessionHandler(sessions, validate, testSecret, time.Hour, logger),
		DeadlineHandler:      handler.NewDeadlineHandler(syncSvc, logger),
		SyncHandler:          handler.NewSyncHandler(syncSvc, logger),
		CalendarEventHandler: handler.NewCalendarEventHandler(syncSvc, validate, logger),
		SyncRunHandler:       handler.NewSyncRunHandler(service.NewSyncRunService(runs, logger), validate, logger),
		SessionMiddleware:    middleware.SessionProtected(testSecret, sessions),
		AIReady:              true,
	})

	return &testServer{app: app, sessions: sessions, runs: runs, redis: mr}
}

// login opens a session directly in the store and signs a token for it.
func (s *testServer) login(t *testing.T) (models.Session, string) {
	t.Helper()

	session, err := s.sessions.Create(context.Background(), "ya29.google-access-token")
	require.NoError(t, err)
	token, err := middleware.IssueSessionToken(testSecret, session.ID, time.Hour)
	require.NoError(t, err)
	return session, token
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
	Message string          `json:"message"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
