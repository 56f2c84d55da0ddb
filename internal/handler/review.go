package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/service"
	"github.com/novaavatar/api/pkg/response"
)

type ReviewHandler struct {
	service   *service.VideoService
	validator *validator.Validate
}

func NewReviewHandler(svc *service.VideoService, v *validator.Validate) *ReviewHandler {
	return &ReviewHandler{
		service:   svc,
		validator: v,
	}
}

// Queue handles GET /api/review
func (h *ReviewHandler) Queue(c *fiber.Ctx) error {
	jobs, err := h.service.ReviewQueue(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, fiber.Map{"jobs": jobs, "count": len(jobs)})
}

// Approve handles POST /api/review/:jobId/approve
func (h *ReviewHandler) Approve(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.service.Approve(c.Context(), jobID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, job)
}

// Reject handles POST /api/review/:jobId/reject
func (h *ReviewHandler) Reject(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	job, err := h.service.Reject(c.Context(), jobID, req.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, job)
}
