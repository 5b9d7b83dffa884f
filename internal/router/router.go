package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/handlers"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/metrics"
	"github.com/soltixdb/decompose/internal/middleware"
	"github.com/soltixdb/decompose/internal/registry"
	"github.com/soltixdb/decompose/internal/services"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, reg *registry.Registry, m *metrics.Metrics, cfg config.Config) *handlers.Handler {
	service := services.NewDecomposeService(logger, reg, m, cfg.Inference)
	h := handlers.New(logger, reg, service)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddlewareWithConfig(logger, logging.DefaultMiddlewareConfig()))

	// Health check and scrape endpoint (no auth required)
	app.Get("/health", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth)
	fitLimiter := middleware.RateLimit(logger, cfg.RateLimit, m)

	v1 := app.Group("/v1", authMiddleware)

	// Model lifecycle
	v1.Post("/models", fitLimiter, h.FitModel)
	v1.Get("/models", h.ListModels)
	v1.Get("/models/:id", h.GetModel)
	v1.Delete("/models/:id", h.DeleteModel)

	// Inference on fitted models
	v1.Post("/models/:id/predict", h.Predict)
	v1.Post("/models/:id/decompose", h.Decompose)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, reg *registry.Registry, m *metrics.Metrics, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Decompose",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, reg, m, cfg)

	return app
}
