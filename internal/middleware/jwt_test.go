package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/models"
)

const secret = "middleware-secret"

type sessionMap map[string]models.Session

func (m sessionMap) Get(_ context.Context, id string) (models.Session, error) {
	session, ok := m[id]
	if !ok {
		return models.Session{}, errors.New("not found")
	}
	return session, nil
}

func protectedApp(sessions sessionMap) *fiber.App {
	app := fiber.New()
	app.Use(middleware.SessionProtected(secret, sessions))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		session, ok := middleware.SessionFrom(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(middleware.SessionIDFrom(c) + "|" + session.AccessToken)
	})
	return app
}

func TestSessionProtected_LoadsSessionFromToken(t *testing.T) {
	app := protectedApp(sessionMap{"s-1": {ID: "s-1", AccessToken: "ya29.token"}})

	token, err := middleware.IssueSessionToken(secret, "s-1", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "s-1|ya29.token", string(body))
}

func TestSessionProtected_RejectsTokens(t *testing.T) {
	sessions := sessionMap{"s-1": {ID: "s-1"}}

	expired, err := middleware.IssueSessionToken(secret, "s-1", -time.Minute)
	require.NoError(t, err)
	foreign, err := middleware.IssueSessionToken("other-secret", "s-1", time.Minute)
	require.NoError(t, err)
	unknown, err := middleware.IssueSessionToken(secret, "s-404", time.Minute)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	cases := map[string]string{
		"expired":         expired,
		"wrong secret":    foreign,
		"unknown session": unknown,
		"no subject":      noSubject,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := protectedApp(sessions).Test(req)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestSessionProtected_QueryTokenOnlyForUpgrades(t *testing.T) {
	app := protectedApp(sessionMap{"s-1": {ID: "s-1", AccessToken: "ya29.token"}})
	token, err := middleware.IssueSessionToken(secret, "s-1", time.Minute)
	require.NoError(t, err)

	plain := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	resp, err := app.Test(plain)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	upgrade := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	resp, err = app.Test(upgrade)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestIssueSessionTokenRequiresSecret(t *testing.T) {
	_, err := middleware.IssueSessionToken("  ", "s-1", time.Minute)
	require.Error(t, err)
}

func TestRateLimitKeysBySession(t *testing.T) {
	sessions := sessionMap{"s-1": {ID: "s-1"}, "s-2": {ID: "s-2"}}

	app := fiber.New()
	app.Use(middleware.SessionProtected(secret, sessions))
	app.Get("/limited", middleware.RateLimit("test", 1, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	call := func(sessionID string) int {
		token, err := middleware.IssueSessionToken(secret, sessionID, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusNoContent, call("s-1"))
	require.Equal(t, fiber.StatusTooManyRequests, call("s-1"))
	require.Equal(t, fiber.StatusNoContent, call("s-2"))
}
