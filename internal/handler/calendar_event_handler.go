package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/dto"
	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/service"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
)

// CalendarEventHandler manages manual calendar entries.
type CalendarEventHandler struct {
	service   service.SyncService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCalendarEventHandler constructs the handler.
func NewCalendarEventHandler(service service.SyncService, validate *validator.Validate, logger zerolog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "calendar_event_handler").Logger(),
	}
}

// Register wires calendar event routes.
func (h *CalendarEventHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Delete("/:id", h.delete)
}

func (h *CalendarEventHandler) create(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "session required")
	}

	var payload dto.CreateCalendarEventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	created, err := h.service.CreateEvent(c.UserContext(), session, service.CustomEventInput{
		Title:       payload.Title,
		Description: payload.Description,
		Date:        payload.Date,
		Time:        payload.Time,
	})
	if err != nil {
		return respondServiceError(c, *requestLogger(h.logger, c), err, "failed to create calendar event")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "calendar event created", created)
}

func (h *CalendarEventHandler) delete(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "session required")
	}

	eventID := strings.TrimSpace(c.Params("id"))
	if eventID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "event id required")
	}

	if err := h.service.DeleteEvent(c.UserContext(), session, eventID); err != nil {
		return respondServiceError(c, *requestLogger(h.logger, c), err, "failed to delete calendar event")
	}
	return utils.SendSuccess(c, "calendar event deleted", fiber.Map{"id": eventID})
}
