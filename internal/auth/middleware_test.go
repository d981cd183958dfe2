package auth

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

func newProtectedApp(t *testing.T, tm *TokenManager, dispatcher events.Dispatcher, guards ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tm, nil, nil, dispatcher)
	handlers := append([]fiber.Handler{mw.Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		return c.SendString(claims.Email)
	})
	app.Get("/protected", handlers...)
	return app
}

func callProtected(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestAuthMiddleware(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	tm := newTestTokenManager(t, clock)
	token, _, err := tm.Issue(adminIdentity(), 0)
	require.NoError(t, err)

	var rejected []events.Event
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTokenRejected, func(_ context.Context, e events.Event) error {
		rejected = append(rejected, e)
		return nil
	})
	app := newProtectedApp(t, tm, dispatcher)

	status, body := callProtected(t, app, "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "a@x.com", body)

	status, _ = callProtected(t, app, "bearer "+token)
	assert.Equal(t, fiber.StatusOK, status, "scheme is case-insensitive")

	status, body = callProtected(t, app, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body)

	status, body = callProtected(t, app, "Basic abc")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body)

	status, body = callProtected(t, app, "Bearer not.a.jwt")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_INVALID", body)

	clock.Advance(31 * time.Minute)
	status, body = callProtected(t, app, "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_EXPIRED", body)

	require.Len(t, rejected, 2)
	assert.Equal(t, "malformed", rejected[0].Payload.(events.TokenRejectedPayload).Reason)
	assert.Equal(t, "expired", rejected[1].Payload.(events.TokenRejectedPayload).Reason)
}

func TestRequireRole(t *testing.T) {
	clock := newFakeClock(time.Now())
	tm := newTestTokenManager(t, clock)

	adminToken, _, err := tm.Issue(adminIdentity(), 0)
	require.NoError(t, err)
	lawyer := adminIdentity()
	lawyer.SubjectID = "2"
	lawyer.Role = domain.RoleLawyer
	lawyerToken, _, err := tm.Issue(lawyer, 0)
	require.NoError(t, err)

	app := newProtectedApp(t, tm, nil, RequireRole(domain.RoleAdmin))

	status, _ := callProtected(t, app, "Bearer "+adminToken)
	assert.Equal(t, fiber.StatusOK, status)

	status, body := callProtected(t, app, "Bearer "+lawyerToken)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body)
}

func TestRequireRoleWithoutClaims(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/", RequireRole(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
