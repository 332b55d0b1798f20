package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// ResidentStore is the backend's resident registry.
type ResidentStore interface {
	ListResidents(ctx context.Context) ([]domain.Resident, error)
	GetResident(ctx context.Context, id int64) (*domain.Resident, error)
	CreateResident(ctx context.Context, in domain.ResidentInput) (*domain.Resident, error)
	UpdateResident(ctx context.Context, id int64, in domain.ResidentInput) (*domain.Resident, error)
	DeleteResident(ctx context.Context, id int64) error
	ResetDataset(ctx context.Context, id int64) (*domain.Resident, error)
	CheckDataset(ctx context.Context, name string) domain.DatasetStatus
}

type ResidentsHandler struct {
	store         ResidentStore
	defaultRole   string
	minNameLength int
	logger        *slog.Logger
}

func NewResidentsHandler(store ResidentStore, defaultRole string, minNameLength int, logger *slog.Logger) *ResidentsHandler {
	return &ResidentsHandler{
		store:         store,
		defaultRole:   defaultRole,
		minNameLength: minNameLength,
		logger:        logger,
	}
}

// List GET /api/residents
func (h *ResidentsHandler) List(c *fiber.Ctx) error {
	residents, err := h.store.ListResidents(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(residents)
}

// Get GET /api/residents/:id
func (h *ResidentsHandler) Get(c *fiber.Ctx) error {
	id, err := residentID(c)
	if err != nil {
		return err
	}
	resident, err := h.store.GetResident(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(resident)
}

// Create POST /api/residents
func (h *ResidentsHandler) Create(c *fiber.Ctx) error {
	in, err := h.parseInput(c)
	if err != nil {
		return err
	}
	resident, err := h.store.CreateResident(c.Context(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(resident)
}

// Update PUT /api/residents/:id
func (h *ResidentsHandler) Update(c *fiber.Ctx) error {
	id, err := residentID(c)
	if err != nil {
		return err
	}
	in, err := h.parseInput(c)
	if err != nil {
		return err
	}
	resident, err := h.store.UpdateResident(c.Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(resident)
}

// Delete DELETE /api/residents/:id
func (h *ResidentsHandler) Delete(c *fiber.Ctx) error {
	id, err := residentID(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteResident(c.Context(), id); err != nil {
		return err
	}
	h.logger.Info("resident deleted", slog.Int64("resident_id", id))
	return c.SendStatus(fiber.StatusNoContent)
}

// Dataset GET /api/residents/:id/dataset
func (h *ResidentsHandler) Dataset(c *fiber.Ctx) error {
	id, err := residentID(c)
	if err != nil {
		return err
	}
	resident, err := h.store.GetResident(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(h.store.CheckDataset(c.Context(), resident.Name))
}

// DeleteDataset DELETE /api/residents/:id/dataset removes the stored
// samples and resets the resident's face count.
func (h *ResidentsHandler) DeleteDataset(c *fiber.Ctx) error {
	id, err := residentID(c)
	if err != nil {
		return err
	}
	resident, err := h.store.ResetDataset(c.Context(), id)
	if err != nil {
		return err
	}
	h.logger.Info("resident dataset deleted",
		slog.Int64("resident_id", id),
		slog.String("name", resident.Name),
	)
	return c.JSON(resident)
}

func (h *ResidentsHandler) parseInput(c *fiber.Ctx) (domain.ResidentInput, error) {
	var in domain.ResidentInput
	if err := c.BodyParser(&in); err != nil {
		return in, domain.ErrBadRequest.WithError(err)
	}
	in.Name = strings.TrimSpace(in.Name)
	if len([]rune(in.Name)) < h.minNameLength {
		return in, domain.ErrBadRequest.WithMessage("Nama penghuni minimal " + strconv.Itoa(h.minNameLength) + " karakter.")
	}
	if in.Role == "" {
		in.Role = h.defaultRole
	}
	return in, nil
}

func residentID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrBadRequest.WithMessage("invalid resident id")
	}
	return id, nil
}
