package handlers

import (
	"github.com/gofiber/fiber/v2"

	"linkpost/internal/service"
)

type HistoryHandler struct {
	hs service.HistoryService
}

func NewHistoryHandler(hs service.HistoryService) *HistoryHandler {
	return &HistoryHandler{hs: hs}
}

func (h *HistoryHandler) ListPosts(c *fiber.Ctx) error {
	userID := c.Query("user_id", service.CurrentUser)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	history, err := h.hs.GetPostHistory(c.Context(), GetToken(c), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(history)
}

func (h *HistoryHandler) PostStats(c *fiber.Ctx) error {
	stats, err := h.hs.GetPostStats(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}
