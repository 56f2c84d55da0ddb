package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/service"
	"github.com/novaavatar/api/pkg/response"
)

type AvatarHandler struct {
	service   *service.AvatarService
	validator *validator.Validate
}

func NewAvatarHandler(svc *service.AvatarService, v *validator.Validate) *AvatarHandler {
	return &AvatarHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/avatars
func (h *AvatarHandler) Create(c *fiber.Ctx) error {
	var req model.AvatarCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	avatar, err := h.service.Create(c.Context(), &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.Created(c, avatar)
}

// Get handles GET /api/avatars/:avatarId
func (h *AvatarHandler) Get(c *fiber.Ctx) error {
	id := c.Params("avatarId")
	if id == "" {
		return response.ValidationError(c, "Avatar ID is required", nil)
	}

	avatar, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, avatar)
}

// List handles GET /api/avatars
func (h *AvatarHandler) List(c *fiber.Ctx) error {
	avatars, err := h.service.List(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, fiber.Map{"avatars": avatars, "count": len(avatars)})
}
