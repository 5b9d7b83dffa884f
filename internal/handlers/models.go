package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/models"
)

// FitModel fits a model tree on the posted series
// POST /v1/models
func (h *Handler) FitModel(c *fiber.Ctx) error {
	var req models.FitRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	ctx := c.UserContext()
	logging.DebugCtx(ctx, "Fit requested",
		"model_type", req.Model.Type,
		"rows", len(req.Data.Time),
		"method", req.Options.Method)

	resp, err := h.service.Fit(ctx, &req)
	if err != nil {
		return h.writeError(c, err, "FIT_FAILED")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListModels lists the fitted models held in memory
// GET /v1/models
func (h *Handler) ListModels(c *fiber.Ctx) error {
	return c.JSON(h.service.List())
}

// GetModel describes one fitted model
// GET /v1/models/:id
func (h *Handler) GetModel(c *fiber.Ctx) error {
	resp, err := h.service.Get(c.Params("id"))
	if err != nil {
		return h.writeError(c, err, "MODEL_LOOKUP_FAILED")
	}
	return c.JSON(resp)
}

// Predict evaluates a fitted model on new rows
// POST /v1/models/:id/predict
func (h *Handler) Predict(c *fiber.Ctx) error {
	var req models.PredictRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	id := c.Params("id")
	ctx := logging.WithModelID(c.UserContext(), id)
	logging.DebugCtx(ctx, "Predict requested", "rows", len(req.Data.Time), "percentiles", req.Percentiles)

	resp, err := h.service.Predict(id, &req)
	if err != nil {
		return h.writeError(c, err, "PREDICT_FAILED")
	}
	return c.JSON(resp)
}

// Decompose returns per-component contributions on new rows
// POST /v1/models/:id/decompose
func (h *Handler) Decompose(c *fiber.Ctx) error {
	var req models.PredictRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	id := c.Params("id")
	logging.DebugCtx(logging.WithModelID(c.UserContext(), id), "Decompose requested", "rows", len(req.Data.Time))

	resp, err := h.service.Decompose(id, &req)
	if err != nil {
		return h.writeError(c, err, "PREDICT_FAILED")
	}
	return c.JSON(resp)
}

// DeleteModel drops a fitted model
// DELETE /v1/models/:id
func (h *Handler) DeleteModel(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(id); err != nil {
		logging.WarnCtx(logging.WithModelID(c.UserContext(), id), "Delete failed", "error", err)
		return h.writeError(c, err, "DELETE_FAILED")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
