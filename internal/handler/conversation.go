package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/service"
	"github.com/novaavatar/api/pkg/response"
)

type ConversationHandler struct {
	service   *service.ConversationService
	validator *validator.Validate
}

func NewConversationHandler(svc *service.ConversationService, v *validator.Validate) *ConversationHandler {
	return &ConversationHandler{
		service:   svc,
		validator: v,
	}
}

// Create handles POST /api/conversations
func (h *ConversationHandler) Create(c *fiber.Ctx) error {
	var req model.ConversationCreateRequest
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

// Get handles GET /api/conversations/:conversationId
func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	id := c.Params("conversationId")
	if id == "" {
		return response.ValidationError(c, "Conversation ID is required", nil)
	}

	conv, err := h.service.Get(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, conv)
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	convs, err := h.service.List(c.Context(), limit)
	if err != nil {
		return respondServiceError(c, err)
	}

	return response.OK(c, fiber.Map{"conversations": convs, "count": len(convs)})
}

// File handles GET /api/conversations/:conversationId/file
func (h *ConversationHandler) File(c *fiber.Ctx) error {
	id := c.Params("conversationId")
	if id == "" {
		return response.ValidationError(c, "Conversation ID is required", nil)
	}

	path, err := h.service.VideoFile(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.SendFile(path)
}
