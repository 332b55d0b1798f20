package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// ListResidents calls GET /residents
func (c *Client) ListResidents(ctx context.Context) ([]domain.Resident, error) {
	var residents []domain.Resident
	if err := c.getWithRetry(ctx, "/residents", &residents); err != nil {
		return nil, fmt.Errorf("list residents: %w", err)
	}
	return residents, nil
}

// GetResident calls GET /residents/{id}
func (c *Client) GetResident(ctx context.Context, id int64) (*domain.Resident, error) {
	var resident domain.Resident
	if err := c.getWithRetry(ctx, residentPath(id), &resident); err != nil {
		return nil, fmt.Errorf("get resident %d: %w", id, err)
	}
	return &resident, nil
}

// CreateResident calls POST /residents
func (c *Client) CreateResident(ctx context.Context, in domain.ResidentInput) (*domain.Resident, error) {
	var resident domain.Resident
	if err := c.doJSON(ctx, http.MethodPost, "/residents", in, &resident); err != nil {
		return nil, fmt.Errorf("create resident %q: %w", in.Name, err)
	}
	return &resident, nil
}

// UpdateResident calls PUT /residents/{id}
func (c *Client) UpdateResident(ctx context.Context, id int64, in domain.ResidentInput) (*domain.Resident, error) {
	var resident domain.Resident
	if err := c.doJSON(ctx, http.MethodPut, residentPath(id), in, &resident); err != nil {
		return nil, fmt.Errorf("update resident %d: %w", id, err)
	}
	return &resident, nil
}

// DeleteResident calls DELETE /residents/{id}
func (c *Client) DeleteResident(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, residentPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete resident %d: %w", id, err)
	}
	return nil
}

// DeleteDataset calls DELETE /residents/dataset/{name}
func (c *Client) DeleteDataset(ctx context.Context, name string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/residents/dataset/"+url.PathEscape(name), nil, nil); err != nil {
		return fmt.Errorf("delete dataset %q: %w", name, err)
	}
	return nil
}

// ResetDataset deletes the samples stored for a resident, then sets its
// face_count to zero. The count is left untouched when the delete fails.
func (c *Client) ResetDataset(ctx context.Context, id int64) (*domain.Resident, error) {
	resident, err := c.GetResident(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.DeleteDataset(ctx, resident.Name); err != nil {
		return nil, err
	}
	return c.UpdateResident(ctx, id, domain.ResidentInput{
		Name:      resident.Name,
		Role:      resident.Role,
		FaceCount: 0,
	})
}

// CheckDataset calls GET /check_dataset/{name}. It never fails: any error or
// malformed answer reads as "no dataset".
func (c *Client) CheckDataset(ctx context.Context, name string) domain.DatasetStatus {
	if name == "" {
		return domain.DatasetStatus{}
	}

	var raw struct {
		Exists    *bool `json:"exists"`
		FaceCount int   `json:"face_count"`
	}
	if err := c.getWithRetry(ctx, "/check_dataset/"+url.PathEscape(name), &raw); err != nil || raw.Exists == nil {
		return domain.DatasetStatus{}
	}
	return domain.DatasetStatus{Exists: *raw.Exists, FaceCount: raw.FaceCount}
}

func residentPath(id int64) string {
	return "/residents/" + strconv.FormatInt(id, 10)
}
