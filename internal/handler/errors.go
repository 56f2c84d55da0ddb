package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/novaavatar/api/internal/pipeline"
	"github.com/novaavatar/api/internal/store"
	"github.com/novaavatar/api/pkg/response"
)

// respondServiceError maps service-layer sentinel errors onto HTTP status
// codes. Anything unrecognized is a 500.
func respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, pipeline.ErrInvalidTransition):
		return response.Conflict(c, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, pipeline.ErrJobBusy):
		return response.Conflict(c, response.CodeJobBusy, err.Error())
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		return response.SourceUnavailable(c, err.Error())
	default:
		return response.ServiceError(c, err.Error())
	}
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
