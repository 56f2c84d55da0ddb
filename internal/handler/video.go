package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/service"
	"github.com/novaavatar/api/pkg/response"
)

type VideoHandler struct {
	service   *service.VideoService
	validator *validator.Validate
}

func NewVideoHandler(svc *service.VideoService, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/videos/generate
func (h *VideoHandler) Create(c *fiber.Ctx) error {
	var req model.VideoCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.Accepted(c, result)
}

// BatchCreate handles POST /api/videos/batch
func (h *VideoHandler) BatchCreate(c *fiber.Ctx) error {
	var req model.BatchVideoCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.BatchCreate(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.Accepted(c, result)
}

// Get handles GET /api/videos/:jobId
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.Get(c.Context(), jobID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, job)
}

// List handles GET /api/videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	status := model.JobStatus(c.Query("status"))

	jobs, err := h.service.List(c.Context(), status)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, fiber.Map{"jobs": jobs, "count": len(jobs)})
}

// File handles GET /api/videos/:jobId/file
func (h *VideoHandler) File(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	path, err := h.service.VideoFile(c.Context(), jobID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.SendFile(path)
}

// Retry handles POST /api/videos/:jobId/retry
func (h *VideoHandler) Retry(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.Retry(c.Context(), jobID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.Accepted(c, job)
}

// Cancel handles POST /api/videos/:jobId/cancel
func (h *VideoHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.Cancel(c.Context(), jobID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, job)
}
