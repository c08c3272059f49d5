package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/service"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
)

// PipelineMeta reports how each pipeline stage went.
type PipelineMeta struct {
	ExtractionStatus string                `json:"extraction_status"`
	DedupStatus      string                `json:"dedup_status"`
	Stats            service.PipelineStats `json:"stats"`
	Warnings         []string              `json:"warnings,omitempty"`
}

// DeadlineHandler exposes classwork and announcement deadlines of the session.
type DeadlineHandler struct {
	service service.SyncService
	logger  zerolog.Logger
}

// NewDeadlineHandler constructs the handler.
func NewDeadlineHandler(service service.SyncService, logger zerolog.Logger) *DeadlineHandler {
	return &DeadlineHandler{
		service: service,
		logger:  logger.With().Str("component", "deadline_handler").Logger(),
	}
}

// Register wires the read routes. limit throttles the endpoint that calls the model.
func (h *DeadlineHandler) Register(router fiber.Router, limit fiber.Handler) {
	router.Get("/classwork", h.classwork)
	router.Get("/announcements", limit, h.announcements)
}

func (h *DeadlineHandler) classwork(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "session required")
	}

	assignments, err := h.service.LoadClasswork(c.UserContext(), session)
	if err != nil {
		return respondServiceError(c, *requestLogger(h.logger, c), err, "failed to fetch classwork")
	}
	return utils.SendSuccess(c, "classwork retrieved", assignments)
}

func (h *DeadlineHandler) announcements(c *fiber.Ctx) error {
	session, ok := middleware.SessionFrom(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "session required")
	}

	result, err := h.service.LoadAnnouncementDeadlines(c.UserContext(), session)
	if err != nil {
		return respondServiceError(c, *requestLogger(h.logger, c), err, "failed to extract deadlines")
	}

	meta := PipelineMeta{
		ExtractionStatus: result.ExtractionStatus,
		DedupStatus:      result.DedupStatus,
		Stats:            result.Stats,
		Warnings:         result.Warnings,
	}
	return utils.OK(c, fiber.Map{
		"announcements":       result.Announcements,
		"extracted_deadlines": result.ExtractedDeadlines,
	}, "announcement deadlines extracted", meta)
}
