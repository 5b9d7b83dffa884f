package middleware

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/metrics"
	"github.com/soltixdb/decompose/internal/models"
	"golang.org/x/time/rate"
)

// RateLimit throttles the routes it wraps with a shared token bucket.
// Fits are CPU bound, so one bucket for the whole process is enough.
func RateLimit(logger *logging.Logger, cfg config.RateLimitConfig, m *metrics.Metrics) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.FitsPerSecond), cfg.Burst)

	return func(c *fiber.Ctx) error {
		if limiter.Allow() {
			return c.Next()
		}

		if m != nil {
			m.RateLimited.Inc()
		}
		retry := int(math.Ceil(1 / cfg.FitsPerSecond))
		if retry < 1 {
			retry = 1
		}

		logger.Warn("Rate limit exceeded",
			"path", c.Path(),
			"ip", c.IP(),
			"request_id", logging.RequestIDFromContext(c.UserContext()),
		)

		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
		return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "RATE_LIMITED",
				Message: "Too many fit requests, retry later",
				Path:    c.Path(),
			},
		})
	}
}
