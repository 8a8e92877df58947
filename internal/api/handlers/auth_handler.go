package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	config "linkpost/configs"
	"linkpost/internal/service"
	"linkpost/pkg/utils"
)

type AuthHandler struct {
	ln  service.LinkedInService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, ln service.LinkedInService) *AuthHandler {
	return &AuthHandler{ln: ln, cfg: cfg}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := utils.GenerateStateToken(h.cfg.SecretKey, 10*time.Minute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "something went wrong",
		})
	}

	return c.Redirect(h.ln.AuthURL(state))
}

func (h *AuthHandler) LoginCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if err := utils.ValidateStateToken(h.cfg.SecretKey, state); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid OAuth state",
		})
	}

	token, err := h.ln.ExchangeCode(c.Context(), c.Query("code"))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":      true,
		"access_token": token.AccessToken,
		"expires_in":   token.ExpiresIn,
	})
}
