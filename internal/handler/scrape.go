package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/service"
	"github.com/novaavatar/api/pkg/response"
)

type ScrapeHandler struct {
	service   *service.ScrapeService
	validator *validator.Validate
}

func NewScrapeHandler(svc *service.ScrapeService, v *validator.Validate) *ScrapeHandler {
	return &ScrapeHandler{
		service:   svc,
		validator: v,
	}
}

// Scrape handles POST /api/scrape
func (h *ScrapeHandler) Scrape(c *fiber.Ctx) error {
	var req model.ScrapeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Scrape(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, result)
}
