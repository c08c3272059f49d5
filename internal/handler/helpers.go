package handler

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/service"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
	"github.com/noah-isme/deadline-sync-api/pkg/calendar"
	"github.com/noah-isme/deadline-sync-api/pkg/classroom"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.ScopeFrom(c).Logger(base)
	return &logger
}

// NewValidator returns a validator that reports fields by their json or query name.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return validate
}

// validationDetails maps each failing field to the rule it broke.
func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// respondServiceError translates pipeline and collaborator failures into HTTP statuses.
func respondServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var classroomErr *classroom.APIError
	var calendarErr *calendar.APIError

	switch {
	case errors.Is(err, service.ErrInferenceUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "deadline extraction is not configured")
	case errors.Is(err, service.ErrNoStoredAssignments), errors.Is(err, service.ErrNoStoredDeadlines):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.Is(err, classroom.ErrUnauthorized), errors.Is(err, calendar.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusUnauthorized, "google access token was rejected, sign in again")
	case errors.Is(err, context.DeadlineExceeded):
		return utils.SendError(c, fiber.StatusGatewayTimeout, "upstream request timed out")
	case errors.As(err, &classroomErr):
		logger.Warn().Err(err).Int("upstream_status", classroomErr.StatusCode).Msg("classroom request failed")
		return utils.SendError(c, fiber.StatusBadGateway, "classroom request failed")
	case errors.As(err, &calendarErr):
		logger.Warn().Err(err).Int("upstream_status", calendarErr.StatusCode).Msg("calendar request failed")
		return utils.SendError(c, fiber.StatusBadGateway, "calendar request failed")
	default:
		logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
