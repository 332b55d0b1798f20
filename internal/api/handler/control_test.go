package handler

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/pipeline"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) StartCamera(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockPipeline) StopCamera() error {
	return m.Called().Error(0)
}

func (m *MockPipeline) StartRecognition(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockPipeline) StopRecognition() {
	m.Called()
}

func (m *MockPipeline) StartEnrollment(name string, residentID *int64) (bool, error) {
	args := m.Called(name, residentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPipeline) CancelEnrollment() bool {
	return m.Called().Bool(0)
}

func (m *MockPipeline) Snapshot() pipeline.Status {
	return m.Called().Get(0).(pipeline.Status)
}

func newControlApp(p *MockPipeline) *fiber.App {
	h := NewControlHandler(p, testLogger())
	app := newTestApp()
	app.Get("/api/status", h.Status)
	app.Post("/api/camera/start", h.StartCamera)
	app.Post("/api/camera/stop", h.StopCamera)
	app.Post("/api/recognition/start", h.StartRecognition)
	app.Post("/api/recognition/stop", h.StopRecognition)
	app.Post("/api/enrollment/start", h.StartEnrollment)
	app.Post("/api/enrollment/cancel", h.CancelEnrollment)
	return app
}

func TestControlHandler_Camera(t *testing.T) {
	t.Run("start returns snapshot", func(t *testing.T) {
		p := new(MockPipeline)
		p.On("StartCamera").Return(nil)
		p.On("Snapshot").Return(pipeline.Status{Mode: "idle", Camera: "active"})

		resp := doJSON(t, newControlApp(p), "POST", "/api/camera/start", "")

		assert.Equal(t, 200, resp.StatusCode)
		status := decode[pipeline.Status](t, resp)
		assert.Equal(t, "active", status.Camera)
		p.AssertExpectations(t)
	})

	t.Run("permission denied", func(t *testing.T) {
		p := new(MockPipeline)
		p.On("StartCamera").Return(domain.ErrPermissionDenied.WithMessage("Izin kamera ditolak"))

		resp := doJSON(t, newControlApp(p), "POST", "/api/camera/start", "")

		assert.Equal(t, 403, resp.StatusCode)
		body := decode[errorBody](t, resp)
		assert.Equal(t, "PERMISSION_DENIED", body.Error.Code)
		assert.Equal(t, "Izin kamera ditolak", body.Error.Message)
	})

	t.Run("stop refused while uploading", func(t *testing.T) {
		p := new(MockPipeline)
		p.On("StopCamera").Return(domain.ErrSessionBusy.WithMessage("Enrollment upload in progress"))

		resp := doJSON(t, newControlApp(p), "POST", "/api/camera/stop", "")

		assert.Equal(t, 409, resp.StatusCode)
		p.AssertNotCalled(t, "Snapshot")
	})
}

func TestControlHandler_Recognition(t *testing.T) {
	t.Run("busy during enrollment", func(t *testing.T) {
		p := new(MockPipeline)
		p.On("StartRecognition").Return(domain.ErrSessionBusy)

		resp := doJSON(t, newControlApp(p), "POST", "/api/recognition/start", "")

		assert.Equal(t, 409, resp.StatusCode)
		assert.Equal(t, "SESSION_BUSY", decode[errorBody](t, resp).Error.Code)
	})

	t.Run("stop", func(t *testing.T) {
		p := new(MockPipeline)
		p.On("StopRecognition").Return()
		p.On("Snapshot").Return(pipeline.Status{Mode: "idle"})

		resp := doJSON(t, newControlApp(p), "POST", "/api/recognition/stop", "")

		assert.Equal(t, 200, resp.StatusCode)
		p.AssertExpectations(t)
	})
}

func TestControlHandler_StartEnrollment(t *testing.T) {
	id := int64(7)

	tests := []struct {
		name       string
		body       string
		setup      func(p *MockPipeline)
		wantStatus int
		wantCode   string
	}{
		{
			name: "started",
			body: `{"name":"  Ana  "}`,
			setup: func(p *MockPipeline) {
				p.On("StartEnrollment", "Ana", (*int64)(nil)).Return(true, nil)
			},
			wantStatus: 202,
		},
		{
			name: "re-enroll existing resident",
			body: `{"name":"Ana","resident_id":7}`,
			setup: func(p *MockPipeline) {
				p.On("StartEnrollment", "Ana", &id).Return(true, nil)
			},
			wantStatus: 202,
		},
		{
			name: "already recording",
			body: `{"name":"Ana"}`,
			setup: func(p *MockPipeline) {
				p.On("StartEnrollment", "Ana", (*int64)(nil)).Return(false, nil)
			},
			wantStatus: 200,
		},
		{
			name: "camera not active",
			body: `{"name":"Ana"}`,
			setup: func(p *MockPipeline) {
				p.On("StartEnrollment", "Ana", (*int64)(nil)).
					Return(false, domain.ErrPrecondition.WithMessage("Kamera belum aktif. Silakan tunggu atau izinkan akses kamera."))
			},
			wantStatus: 412,
			wantCode:   "PRECONDITION_FAILED",
		},
		{
			name:       "malformed body",
			body:       `{"name":`,
			setup:      func(p *MockPipeline) {},
			wantStatus: 400,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockPipeline)
			tt.setup(p)

			resp := doJSON(t, newControlApp(p), "POST", "/api/enrollment/start", tt.body)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode[errorBody](t, resp).Error.Code)
			}
			p.AssertExpectations(t)
		})
	}
}

func TestControlHandler_CancelEnrollment(t *testing.T) {
	p := new(MockPipeline)
	p.On("CancelEnrollment").Return(true)

	resp := doJSON(t, newControlApp(p), "POST", "/api/enrollment/cancel", "")

	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, decode[EnrollmentResponse](t, resp).Cancelled)
}
