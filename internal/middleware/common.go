package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware chain shared by every route.
type Config struct {
	Logger       zerolog.Logger
	AllowOrigins string
}

// Register installs the shared chain. The request scope is opened before
// observability so access logs and metrics carry the correlation id.
func Register(app *fiber.App, cfg Config) {
	origins := strings.TrimSpace(cfg.AllowOrigins)
	if origins == "" {
		origins = "*"
	}

	app.Use(
		recover.New(recover.Config{
			EnableStackTrace: true,
			StackTraceHandler: func(c *fiber.Ctx, panicValue interface{}) {
				logger := ScopeFrom(c).Logger(cfg.Logger)
				logger.Error().
					Interface("panic", panicValue).
					Str("path", c.Path()).
					Msg("recovered from panic")
			},
		}),
		RequestScope(),
		Observability(cfg.Logger),
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + CorrelationHeader,
			AllowMethods:  "GET,POST,DELETE,OPTIONS",
			ExposeHeaders: CorrelationHeader,
		}),
	)
}
