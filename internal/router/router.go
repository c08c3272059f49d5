package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/deadline-sync-api/internal/config"
	"github.com/noah-isme/deadline-sync-api/internal/handler"
	"github.com/noah-isme/deadline-sync-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler       *handler.SessionHandler
	DeadlineHandler      *handler.DeadlineHandler
	SyncHandler          *handler.SyncHandler
	CalendarEventHandler *handler.CalendarEventHandler
	SyncRunHandler       *handler.SyncRunHandler
	SessionMiddleware    fiber.Handler
	AIRateLimit          fiber.Handler
	AIReady              bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.AIReady))

	auth := deps.SessionMiddleware
	if auth == nil {
		auth = func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication unavailable")
		}
	}

	limit := deps.AIRateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/sessions"), auth)
	}

	// Public routes above are matched before this group's middleware runs.
	protected := api.Group("", auth)

	if deps.DeadlineHandler != nil {
		deps.DeadlineHandler.Register(protected, limit)
	}

	if deps.SyncHandler != nil {
		deps.SyncHandler.Register(protected, limit)
	}

	if deps.CalendarEventHandler != nil {
		deps.CalendarEventHandler.Register(protected.Group("/calendar-events"))
	}

	if deps.SyncRunHandler != nil {
		deps.SyncRunHandler.Register(protected.Group("/sync-runs"))
	}
}
