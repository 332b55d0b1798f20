package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/pipeline"
)

// Pipeline is the camera and task control surface.
type Pipeline interface {
	StartCamera(ctx context.Context) error
	StopCamera() error
	StartRecognition(ctx context.Context) error
	StopRecognition()
	StartEnrollment(name string, residentID *int64) (bool, error)
	CancelEnrollment() bool
	Snapshot() pipeline.Status
}

type ControlHandler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

func NewControlHandler(p Pipeline, logger *slog.Logger) *ControlHandler {
	return &ControlHandler{pipeline: p, logger: logger}
}

// StartEnrollmentRequest names the resident being enrolled. ResidentID is
// set when re-enrolling an existing resident.
type StartEnrollmentRequest struct {
	Name       string `json:"name"`
	ResidentID *int64 `json:"resident_id,omitempty"`
}

type EnrollmentResponse struct {
	Started   bool `json:"started,omitempty"`
	Cancelled bool `json:"cancelled,omitempty"`
}

// Status GET /api/status
func (h *ControlHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.pipeline.Snapshot())
}

// StartCamera POST /api/camera/start
func (h *ControlHandler) StartCamera(c *fiber.Ctx) error {
	if err := h.pipeline.StartCamera(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(h.pipeline.Snapshot())
}

// StopCamera POST /api/camera/stop
func (h *ControlHandler) StopCamera(c *fiber.Ctx) error {
	if err := h.pipeline.StopCamera(); err != nil {
		return err
	}
	return c.JSON(h.pipeline.Snapshot())
}

// StartRecognition POST /api/recognition/start
func (h *ControlHandler) StartRecognition(c *fiber.Ctx) error {
	if err := h.pipeline.StartRecognition(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(h.pipeline.Snapshot())
}

// StopRecognition POST /api/recognition/stop
func (h *ControlHandler) StopRecognition(c *fiber.Ctx) error {
	h.pipeline.StopRecognition()
	return c.JSON(h.pipeline.Snapshot())
}

// StartEnrollment POST /api/enrollment/start
func (h *ControlHandler) StartEnrollment(c *fiber.Ctx) error {
	var req StartEnrollmentRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	name := strings.TrimSpace(req.Name)

	started, err := h.pipeline.StartEnrollment(name, req.ResidentID)
	if err != nil {
		return err
	}
	if !started {
		// A recording is already running; the second request is ignored.
		return c.JSON(EnrollmentResponse{Started: false})
	}

	h.logger.Info("enrollment started", slog.String("name", name))
	return c.Status(fiber.StatusAccepted).JSON(EnrollmentResponse{Started: true})
}

// CancelEnrollment POST /api/enrollment/cancel
func (h *ControlHandler) CancelEnrollment(c *fiber.Ctx) error {
	return c.JSON(EnrollmentResponse{Cancelled: h.pipeline.CancelEnrollment()})
}
