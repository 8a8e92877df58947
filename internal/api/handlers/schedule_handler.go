package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"linkpost/internal/models"
	"linkpost/internal/scheduler"
	"linkpost/internal/transfer"
)

type ScheduleHandler struct {
	s *scheduler.Scheduler
}

func NewScheduleHandler(s *scheduler.Scheduler) *ScheduleHandler {
	return &ScheduleHandler{s: s}
}

func (h *ScheduleHandler) SchedulePost(c *fiber.Ctx) error {
	var req transfer.SchedulePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Unable to parse request body",
		})
	}

	scheduledTime, err := parseScheduledTime(req.ScheduledTime)
	if err != nil {
		return writeError(c, err)
	}

	post, err := h.s.SchedulePost(c.Context(), GetToken(c), req.Content, scheduledTime, linkFromRequest(&req))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":        true,
		"message":        "Post scheduled successfully",
		"scheduled_post": post,
	})
}

func (h *ScheduleHandler) ListScheduled(c *fiber.Ctx) error {
	posts, err := h.s.GetScheduledPosts(c.Context(), GetToken(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *ScheduleHandler) ListFailed(c *fiber.Ctx) error {
	posts, err := h.s.GetFailedPosts(c.Context(), GetToken(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *ScheduleHandler) CancelScheduled(c *fiber.Ctx) error {
	postID := c.Params("id")

	if err := h.s.CancelScheduledPost(c.Context(), GetToken(c), postID); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Scheduled post cancelled",
	})
}

func (h *ScheduleHandler) UpdateScheduled(c *fiber.Ctx) error {
	postID := c.Params("id")

	var req transfer.SchedulePostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Unable to parse request body",
		})
	}

	scheduledTime, err := parseScheduledTime(req.ScheduledTime)
	if err != nil {
		return writeError(c, err)
	}

	post, err := h.s.UpdateScheduledPost(c.Context(), GetToken(c), postID, req.Content, scheduledTime, linkFromRequest(&req))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":        true,
		"message":        "Scheduled post updated",
		"scheduled_post": post,
	})
}

func parseScheduledTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: scheduled_time is required", models.ErrValidation)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: scheduled_time must be RFC 3339", models.ErrValidation)
	}
	return t, nil
}

func linkFromRequest(req *transfer.SchedulePostRequest) *models.LinkAttachment {
	if req.LinkURL == "" {
		return nil
	}
	return &models.LinkAttachment{
		URL:         req.LinkURL,
		Title:       req.LinkTitle,
		Description: req.LinkDescription,
	}
}
