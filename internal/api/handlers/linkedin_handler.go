package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"linkpost/internal/models"
	"linkpost/internal/service"
	"linkpost/internal/transfer"
)

type LinkedInHandler struct {
	ln service.LinkedInService
	hs service.HistoryService
}

func NewLinkedInHandler(ln service.LinkedInService, hs service.HistoryService) *LinkedInHandler {
	return &LinkedInHandler{ln: ln, hs: hs}
}

// PublishNow publishes immediately, bypassing the scheduler, and records a
// history entry like a fired scheduled post would.
func (h *LinkedInHandler) PublishNow(c *fiber.Ctx) error {
	var req transfer.SchedulePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Unable to parse request body",
		})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Post content is required",
		})
	}

	token := GetToken(c)

	valid, err := h.ln.VerifyAccessToken(c.Context(), token)
	if err != nil {
		return writeError(c, err)
	}
	if !valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "LinkedIn token invalid or expired",
		})
	}

	postID, err := h.ln.PublishPost(c.Context(), token, req.Content, linkFromRequest(&req))
	if err != nil {
		return writeError(c, err)
	}

	if _, err := h.hs.AddPostToHistory(c.Context(), token, postID, req.Content, models.PostMetadata{Source: "immediate"}); err != nil {
		slog.Error(err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Post published successfully",
		"post_id": postID,
	})
}

func (h *LinkedInHandler) Profile(c *fiber.Ctx) error {
	profile, err := h.ln.GetProfile(c.Context(), GetToken(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"profile": profile,
	})
}

func (h *LinkedInHandler) VerifyToken(c *fiber.Ctx) error {
	valid, err := h.ln.VerifyAccessToken(c.Context(), GetToken(c))
	if err != nil {
		return writeError(c, err)
	}
	if !valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"valid":   false,
			"message": "LinkedIn token invalid or expired",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"valid": true,
	})
}
