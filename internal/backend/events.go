package backend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// FetchLogs calls GET /logs?limit=N
func (c *Client) FetchLogs(ctx context.Context, limit int) ([]domain.Event, error) {
	var events []domain.Event
	if err := c.getWithRetry(ctx, "/logs?limit="+strconv.Itoa(limit), &events); err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	return events, nil
}

// FetchEvent calls GET /events/{id}
func (c *Client) FetchEvent(ctx context.Context, id int64) (*domain.Event, error) {
	var event domain.Event
	if err := c.getWithRetry(ctx, "/events/"+strconv.FormatInt(id, 10), &event); err != nil {
		return nil, fmt.Errorf("fetch event %d: %w", id, err)
	}
	return &event, nil
}
