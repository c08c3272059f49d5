package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/dto"
	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/service"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
)

// SessionHandler opens and closes API sessions.
type SessionHandler struct {
	sessions  service.SessionStore
	validator *validator.Validate
	secret    string
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewSessionHandler constructs the handler. Tokens it issues expire with the session.
func NewSessionHandler(sessions service.SessionStore, validate *validator.Validate, secret string, ttl time.Duration, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		validator: validate,
		secret:    secret,
		ttl:       ttl,
		logger:    logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register wires session routes. auth guards logout.
func (h *SessionHandler) Register(router fiber.Router, auth fiber.Handler) {
	router.Post("", h.create)
	router.Delete("", auth, h.delete)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateSessionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	logger := requestLogger(h.logger, c)
	ctx := c.UserContext()

	session, err := h.sessions.Create(ctx, payload.AccessToken)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create session")
	}

	token, err := middleware.IssueSessionToken(h.secret, session.ID, h.ttl)
	if err != nil {
		logger.Error().Err(err).Msg("failed to sign session token")
		_ = h.sessions.Delete(ctx, session.ID)
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create session")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", dto.SessionResponse{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: session.CreatedAt.Add(h.ttl),
	})
}

func (h *SessionHandler) delete(c *fiber.Ctx) error {
	sessionID := middleware.SessionIDFrom(c)
	if err := h.sessions.Delete(c.UserContext(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete session")
	}
	return utils.SendSuccess(c, "session closed", nil)
}
