package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/deadline-sync-api/internal/config"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	AIProvider  string    `json:"ai_provider"`
	AIReady     bool      `json:"ai_ready"`
}

// HealthCheck reports service health. aiReady tells clients whether extraction can run.
func HealthCheck(cfg config.Config, aiReady bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			AIProvider:  cfg.AIProvider,
			AIReady:     aiReady,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
