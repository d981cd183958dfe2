package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/auth-gateway/internal/config"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "verbose"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/users/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/denied", func(c *fiber.Ctx) error { return apperrors.NewInvalidCredentials() })

	for _, path := range []string{"/users/42", "/denied", "/users/7", "/scan/aaaaaaaaaaaa", "/scan/b"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 5)
	assert.Equal(t, "/users/42", entries[0].ContextMap()["path"])
	assert.Equal(t, "/denied", entries[1].ContextMap()["path"])
	assert.EqualValues(t, 401, entries[1].ContextMap()["status"])
	assert.Equal(t, "GET", entries[0].ContextMap()["method"])

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/users/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("/denied", "GET", "401")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.requests.WithLabelValues(UnmatchedRoute, "GET", "404")))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.requests), "one series per route and status")
}
