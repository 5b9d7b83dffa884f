package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/models"
	"github.com/soltixdb/decompose/internal/registry"
	"github.com/soltixdb/decompose/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger   *logging.Logger
	registry *registry.Registry
	service  *services.DecomposeService
}

// New creates a new handler instance
func New(logger *logging.Logger, reg *registry.Registry, service *services.DecomposeService) *Handler {
	return &Handler{
		logger:   logger,
		registry: reg,
		service:  service,
	}
}

// statusFor maps a service error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case services.CodeInvalidRequest,
		services.CodeInvalidModel,
		services.CodeInvalidData,
		services.CodeDuplicateComponent:
		return fiber.StatusBadRequest
	case services.CodeModelNotFound:
		return fiber.StatusNotFound
	case services.CodeFitCancelled:
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders a service failure as an ErrorResponse
func (h *Handler) writeError(c *fiber.Ctx, err error, fallbackCode string) error {
	if svcErr, ok := err.(*services.ServiceError); ok {
		return c.Status(statusFor(svcErr.Code)).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Details: svcErr.Details,
				Path:    c.Path(),
			},
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    fallbackCode,
			Message: err.Error(),
			Path:    c.Path(),
		},
	})
}

func invalidJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_JSON",
			Message: "Failed to parse JSON body",
			Details: map[string]interface{}{"error": err.Error()},
		},
	})
}
