package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anjiri1684/liquidity/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newApp(sessions SessionChecker) *fiber.App {
	app := fiber.New()
	app.Get("/me", Protected("secret", sessions), func(c *fiber.Ctx) error {
		claims, _ := CurrentClaims(c)
		return c.SendString(claims.UserID.String())
	})
	app.Get("/admin", Protected("secret", sessions), AdminRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func bearer(t *testing.T, role string, sid uuid.UUID) string {
	raw, err := utils.GenerateToken("secret", utils.TokenClaims{UserID: uuid.New(), Role: role, SessionID: sid}, time.Minute)
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestProtected(t *testing.T) {
	app := newApp(nil)

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", bearer(t, "user", uuid.New()))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminRequired(t *testing.T) {
	app := newApp(nil)

	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", bearer(t, "user", uuid.New()))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Authorization", bearer(t, "admin", uuid.New()))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestEndedSessionRejected(t *testing.T) {
	ended := uuid.New()
	app := newApp(func(_ context.Context, sid uuid.UUID) (bool, error) {
		return sid != ended, nil
	})

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", bearer(t, "user", ended))
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
