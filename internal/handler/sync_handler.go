package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/internal/service"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
)

// Websocket message types sent by the sync stream.
const (
	syncMessageProgress = "progress"
	syncMessageResult   = "result"
	syncMessageError    = "error"
)

// SyncMessage is one frame of the websocket sync stream.
type SyncMessage struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SyncHandler pushes classwork and announcement deadlines to the calendar.
type SyncHandler struct {
	service service.SyncService
	logger  zerolog.Logger
}

// NewSyncHandler constructs the handler.
func NewSyncHandler(service service.SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		service: service,
		logger:  logger.With().Str("component", "sync_handler").Logger(),
	}
}

// Register wires the sync routes. limit throttles the routes that may call the model.
func (h *SyncHandler) Register(router fiber.Router, limit fiber.Handler) {
	router.Post("/sync/assignments", h.syncAssignments)
	router.Post("/sync/announcements", h.syncAnnouncements)
	router.Post("/sync/all", limit, h.syncAll)

	router.Use("/ws/sync", limit, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", c.UserContext())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/sync", websocket.New(h.stream))
}

func (h *SyncHandler) syncAssignments(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "session required")
	}

	result, err := h.service.SyncAssignments(c.UserContext(), session)
	if err != nil {
		return respondServiceError(c, *requestLogger(h.logger, c), err, "failed to sync assignments")
	}
	return utils.SendSuccess(c, "assignments synced", result)
}

func (h *SyncHandler) syncAnnouncements(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "session required")
	}

	result, err := h.service.SyncAnnouncements(c.UserContext(), session)
	if err != nil {
		return respondServiceError(c, *requestLogger(h.logger, c), err, "failed to sync announcement deadlines")
	}
	return utils.SendSuccess(c, "announcement deadlines synced", result)
}

func (h *SyncHandler) syncAll(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "session required")
	}

	var steps []service.ProgressEvent
	result, err := h.service.SyncAll(c.UserContext(), session, func(event service.ProgressEvent) {
		steps = append(steps, event)
	})
	if err != nil {
		return respondServiceError(c, *requestLogger(h.logger, c), err, "full sync failed")
	}
	return utils.OK(c, result, "full sync completed", fiber.Map{"progress": steps})
}

func (h *SyncHandler) stream(conn *websocket.Conn) {
	session, ok := conn.Locals("session").(models.Session)
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session required"))
		_ = conn.Close()
		return
	}

	parent, _ := conn.Locals("request_ctx").(context.Context)
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	logger := h.logger.With().Str("session_id", session.ID).Logger()

	// The client never sends data; a failed read means it went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("sync stream opened")
	result, err := h.service.SyncAll(ctx, session, func(event service.ProgressEvent) {
		if writeErr := conn.WriteJSON(SyncMessage{Type: syncMessageProgress, Data: event}); writeErr != nil {
			logger.Debug().Err(writeErr).Msg("could not push progress")
		}
	})

	switch {
	case err == nil:
		_ = conn.WriteJSON(SyncMessage{Type: syncMessageResult, Data: result})
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("sync stream cancelled by client")
	default:
		logger.Error().Err(err).Msg("streamed sync failed")
		_ = conn.WriteJSON(SyncMessage{Type: syncMessageError, Message: streamErrorMessage(err)})
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
}

func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInferenceUnavailable):
		return "deadline extraction is not configured"
	case errors.Is(err, service.ErrNoStoredAssignments), errors.Is(err, service.ErrNoStoredDeadlines):
		return err.Error()
	default:
		return "full sync failed"
	}
}
