package handler

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/activity"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

type ActivityFeed interface {
	Latest() []activity.Entry
	List(ctx context.Context, date string) ([]activity.Entry, error)
	Event(ctx context.Context, id int64) (*activity.Entry, error)
}

type ActivityHandler struct {
	feed ActivityFeed
}

func NewActivityHandler(feed ActivityFeed) *ActivityHandler {
	return &ActivityHandler{feed: feed}
}

// Latest GET /api/activity/latest
func (h *ActivityHandler) Latest(c *fiber.Ctx) error {
	return c.JSON(h.feed.Latest())
}

// Logs GET /api/logs?date=YYYY-MM-DD
func (h *ActivityHandler) Logs(c *fiber.Ctx) error {
	entries, err := h.feed.List(c.Context(), c.Query("date"))
	if err != nil {
		return err
	}
	return c.JSON(entries)
}

// Event GET /api/events/:id
func (h *ActivityHandler) Event(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return domain.ErrBadRequest.WithMessage("invalid event id")
	}
	entry, err := h.feed.Event(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(entry)
}
