package handler

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

type MockResidentStore struct {
	mock.Mock
}

func (m *MockResidentStore) ListResidents(ctx context.Context) ([]domain.Resident, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Resident), args.Error(1)
}

func (m *MockResidentStore) GetResident(ctx context.Context, id int64) (*domain.Resident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resident), args.Error(1)
}

func (m *MockResidentStore) CreateResident(ctx context.Context, in domain.ResidentInput) (*domain.Resident, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resident), args.Error(1)
}

func (m *MockResidentStore) UpdateResident(ctx context.Context, id int64, in domain.ResidentInput) (*domain.Resident, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resident), args.Error(1)
}

func (m *MockResidentStore) DeleteResident(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockResidentStore) ResetDataset(ctx context.Context, id int64) (*domain.Resident, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resident), args.Error(1)
}

func (m *MockResidentStore) CheckDataset(ctx context.Context, name string) domain.DatasetStatus {
	return m.Called(ctx, name).Get(0).(domain.DatasetStatus)
}

func newResidentsApp(store *MockResidentStore) *fiber.App {
	h := NewResidentsHandler(store, "Penghuni", 2, testLogger())
	app := newTestApp()
	app.Get("/api/residents", h.List)
	app.Post("/api/residents", h.Create)
	app.Get("/api/residents/:id", h.Get)
	app.Put("/api/residents/:id", h.Update)
	app.Delete("/api/residents/:id", h.Delete)
	app.Get("/api/residents/:id/dataset", h.Dataset)
	app.Delete("/api/residents/:id/dataset", h.DeleteDataset)
	return app
}

func TestResidentsHandler_List(t *testing.T) {
	store := new(MockResidentStore)
	store.On("ListResidents", mock.Anything).Return([]domain.Resident{
		{ID: 1, Name: "Ana", Role: "Penghuni", FaceCount: 120},
	}, nil)

	resp := doJSON(t, newResidentsApp(store), "GET", "/api/residents", "")

	assert.Equal(t, 200, resp.StatusCode)
	residents := decode[[]domain.Resident](t, resp)
	require.Len(t, residents, 1)
	assert.Equal(t, 120, residents[0].FaceCount)
}

func TestResidentsHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(s *MockResidentStore)
		wantStatus int
	}{
		{
			name: "defaults role",
			body: `{"name":" Ana "}`,
			setup: func(s *MockResidentStore) {
				s.On("CreateResident", mock.Anything, domain.ResidentInput{Name: "Ana", Role: "Penghuni"}).
					Return(&domain.Resident{ID: 9, Name: "Ana", Role: "Penghuni"}, nil)
			},
			wantStatus: 201,
		},
		{
			name:       "name too short",
			body:       `{"name":"A"}`,
			setup:      func(s *MockResidentStore) {},
			wantStatus: 400,
		},
		{
			name: "backend rejects",
			body: `{"name":"Ana","role":"Tamu"}`,
			setup: func(s *MockResidentStore) {
				s.On("CreateResident", mock.Anything, domain.ResidentInput{Name: "Ana", Role: "Tamu"}).
					Return(nil, &backend.StatusError{Method: "POST", Path: "/residents", StatusCode: 422, Message: "Role tidak valid"})
			},
			wantStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockResidentStore)
			tt.setup(store)

			resp := doJSON(t, newResidentsApp(store), "POST", "/api/residents", tt.body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			store.AssertExpectations(t)
		})
	}
}

func TestResidentsHandler_InvalidID(t *testing.T) {
	store := new(MockResidentStore)

	for _, path := range []string{"/api/residents/abc", "/api/residents/0", "/api/residents/-3"} {
		resp := doJSON(t, newResidentsApp(store), "GET", path, "")
		assert.Equal(t, 400, resp.StatusCode, path)
	}
	store.AssertNotCalled(t, "GetResident", mock.Anything, mock.Anything)
}

func TestResidentsHandler_Delete(t *testing.T) {
	store := new(MockResidentStore)
	store.On("DeleteResident", mock.Anything, int64(4)).Return(nil)

	resp := doJSON(t, newResidentsApp(store), "DELETE", "/api/residents/4", "")

	assert.Equal(t, 204, resp.StatusCode)
	store.AssertExpectations(t)
}

func TestResidentsHandler_Dataset(t *testing.T) {
	store := new(MockResidentStore)
	store.On("GetResident", mock.Anything, int64(4)).Return(&domain.Resident{ID: 4, Name: "Budi Santoso"}, nil)
	store.On("CheckDataset", mock.Anything, "Budi Santoso").Return(domain.DatasetStatus{Exists: true, FaceCount: 480})

	resp := doJSON(t, newResidentsApp(store), "GET", "/api/residents/4/dataset", "")

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, domain.DatasetStatus{Exists: true, FaceCount: 480}, decode[domain.DatasetStatus](t, resp))
}

func TestResidentsHandler_DeleteDataset(t *testing.T) {
	t.Run("resets dataset", func(t *testing.T) {
		store := new(MockResidentStore)
		store.On("ResetDataset", mock.Anything, int64(4)).
			Return(&domain.Resident{ID: 4, Name: "Budi", Role: "Penghuni", FaceCount: 0}, nil).Once()

		resp := doJSON(t, newResidentsApp(store), "DELETE", "/api/residents/4/dataset", "")

		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 0, decode[domain.Resident](t, resp).FaceCount)
		store.AssertExpectations(t)
	})

	t.Run("backend rejection is passed through", func(t *testing.T) {
		store := new(MockResidentStore)
		store.On("ResetDataset", mock.Anything, int64(4)).
			Return(nil, &backend.StatusError{Method: "DELETE", Path: "/residents/dataset/Budi", StatusCode: 404, Message: "Dataset tidak ditemukan"})

		resp := doJSON(t, newResidentsApp(store), "DELETE", "/api/residents/4/dataset", "")

		assert.Equal(t, 404, resp.StatusCode)
		assert.Equal(t, "Dataset tidak ditemukan", decode[errorBody](t, resp).Error.Message)
	})
}
