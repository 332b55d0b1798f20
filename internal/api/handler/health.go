package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readyTimeout = 3 * time.Second

// ReadinessProbe reports whether a dependency answers.
type ReadinessProbe func(ctx context.Context) error

// ClientCounter reports how many dashboards hold a live connection.
type ClientCounter interface {
	ConnectedClients() int
}

type HealthHandler struct {
	version string
	probe   ReadinessProbe
	clients ClientCounter
}

// NewHealthHandler builds the health endpoints. probe may be nil, in which
// case the service is always ready. clients may be nil when no websocket
// hub is mounted.
func NewHealthHandler(version string, probe ReadinessProbe, clients ClientCounter) *HealthHandler {
	return &HealthHandler{version: version, probe: probe, clients: clients}
}

type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	Backend    string `json:"backend,omitempty"`
	Dashboards *int   `json:"dashboards,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	if h.clients != nil {
		n := h.clients.ConnectedClients()
		resp.Dashboards = &n
	}
	return c.JSON(resp)
}

// Ready checks that the recognition backend is reachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.probe == nil {
		return c.JSON(HealthResponse{Status: "ready"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), readyTimeout)
	defer cancel()

	if err := h.probe(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status:  "not_ready",
			Backend: err.Error(),
		})
	}
	return c.JSON(HealthResponse{Status: "ready", Backend: "ok"})
}
