package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

const scopeLocal = "request_scope"

type scopeKey struct{}

// Scope identifies a request in logs and in the context handed to services.
// SessionID stays empty until SessionProtected has loaded the session.
type Scope struct {
	CorrelationID string
	SessionID     string
}

// Logger returns base annotated with the ids that are set.
func (s Scope) Logger(base zerolog.Logger) zerolog.Logger {
	fields := base.With()
	if s.CorrelationID != "" {
		fields = fields.Str("correlation_id", s.CorrelationID)
	}
	if s.SessionID != "" {
		fields = fields.Str("session_id", s.SessionID)
	}
	return fields.Logger()
}

// RequestScope opens the scope of a request. An incoming X-Correlation-ID or
// X-Request-ID is reused, otherwise a fresh id is generated and echoed back.
func RequestScope() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CorrelationHeader))
		if id == "" {
			id = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(CorrelationHeader, id)
		bindScope(c, Scope{CorrelationID: id})
		return c.Next()
	}
}

func bindScope(c *fiber.Ctx, scope Scope) {
	c.Locals(scopeLocal, scope)
	c.SetUserContext(context.WithValue(c.UserContext(), scopeKey{}, scope))
}

// ScopeFrom returns the scope bound to the request, or the zero Scope.
func ScopeFrom(c *fiber.Ctx) Scope {
	scope, _ := c.Locals(scopeLocal).(Scope)
	return scope
}

// ScopeFromContext returns the scope carried by a context derived from the request.
func ScopeFromContext(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	return scope
}
