package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/dto"
	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/service"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
)

// SyncRunHandler lists the calendar sync history of the session.
type SyncRunHandler struct {
	service   service.SyncRunService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSyncRunHandler constructs the handler.
func NewSyncRunHandler(service service.SyncRunService, validate *validator.Validate, logger zerolog.Logger) *SyncRunHandler {
	return &SyncRunHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "sync_run_handler").Logger(),
	}
}

// Register wires the history route.
func (h *SyncRunHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *SyncRunHandler) list(c *fiber.Ctx) error {
	var query dto.SyncRunQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}
	if err := h.validator.Struct(query); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	result, err := h.service.List(c.UserContext(), middleware.SessionIDFrom(c), query)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list sync runs")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list sync runs")
	}
	return utils.SendSuccess(c, "sync runs retrieved", result)
}
