package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/models"
)

// ErrorHandler returns the app-level error handler. Errors that escape a
// handler are logged with the request ID and rendered as an ErrorResponse.
func ErrorHandler(logger *logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}

		logger.Error("Request error",
			"path", c.Path(),
			"method", c.Method(),
			"status", code,
			"request_id", logging.RequestIDFromContext(c.UserContext()),
			"error", err,
		)

		return c.Status(code).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "ERROR",
				Message: message,
				Path:    c.Path(),
			},
		})
	}
}
