package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitedApp(cfg config.RateLimitConfig, m *metrics.Metrics) *fiber.App {
	app := fiber.New()
	app.Post("/fit", RateLimit(logging.Nop(), cfg, m), func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	return app
}

func TestRateLimit_Burst(t *testing.T) {
	m := metrics.New()
	// one token per 100s so the bucket cannot refill during the test
	app := rateLimitedApp(config.RateLimitConfig{Enabled: true, FitsPerSecond: 0.01, Burst: 2}, m)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/fit", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/fit", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "100", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}

func TestRateLimit_Disabled(t *testing.T) {
	app := rateLimitedApp(config.RateLimitConfig{}, nil)

	for i := 0; i < 10; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/fit", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
