package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/deadline-sync-api/internal/models"
	"github.com/noah-isme/deadline-sync-api/internal/utils"
)

const sessionKey = "session"

// SessionLoader resolves a session identifier into its stored state.
type SessionLoader interface {
	Get(ctx context.Context, id string) (models.Session, error)
}

// IssueSessionToken signs a bearer token whose subject is the session identifier.
func IssueSessionToken(secret, sessionID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret is required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// SessionProtected validates the bearer token and loads the session it names.
// Websocket upgrades may pass the token as the "token" query parameter instead.
func SessionProtected(secret string, sessions SessionLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			if token := strings.TrimSpace(c.Query("token")); token != "" && websocket.IsWebSocketUpgrade(c) {
				authorization = "Bearer " + token
			}
		}
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		sessionID, err := parseSessionToken(secret, tokenString)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		session, err := sessions.Get(c.UserContext(), sessionID)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "session expired or not found")
		}

		scope := ScopeFrom(c)
		scope.SessionID = session.ID
		bindScope(c, scope)
		c.Locals(sessionKey, session)
		return c.Next()
	}
}

func parseSessionToken(secret, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// SessionIDFrom returns the identifier of the authenticated session, if any.
func SessionIDFrom(c *fiber.Ctx) string {
	return ScopeFrom(c).SessionID
}

// SessionFrom returns the session loaded by SessionProtected.
func SessionFrom(c *fiber.Ctx) (models.Session, bool) {
	session, ok := c.Locals(sessionKey).(models.Session)
	return session, ok
}
