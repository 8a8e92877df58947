package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"linkpost/internal/api/middleware"
	"linkpost/internal/models"
)

func GetToken(c *fiber.Ctx) string {
	token, _ := c.Locals(middleware.TokenLocal).(string)
	return token
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrAuth):
		status = fiber.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidState):
		status = fiber.StatusConflict
	case errors.Is(err, models.ErrStorage):
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{
		"message": err.Error(),
	})
}
