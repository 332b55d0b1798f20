package api

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/activity"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/enroll"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/overlay"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/recognition"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/sampler"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/upload"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/ws"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeBackendServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/residents", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"Ana","role":"Penghuni","face_count":480}]`))
	})
	mux.HandleFunc("POST /api/recognition/frame", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detected":false}`))
	})
	mux.HandleFunc("GET /api/logs", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testRouter struct {
	router *Router
	ctrl   *pipeline.Controller
}

func newTestRouter(t *testing.T, rate middleware.RateLimiterConfig) *testRouter {
	t.Helper()
	logger := discardLogger()
	srv := fakeBackendServer(t)

	client := backend.NewClient(backend.Config{BaseURL: srv.URL + "/api", Timeout: time.Second})
	hub := ws.NewHub(logger)
	camera := media.NewManager(media.NewSyntheticDevice(320, 240), logger)
	ctrl := pipeline.New(pipeline.Config{
		Recognition: recognition.Config{Interval: 20 * time.Millisecond, Timeout: time.Second},
		Sampler:     sampler.DefaultConfig(),
		Enroll:      enroll.DefaultConfig(),
		Upload:      upload.DefaultConfig(),
		Activity:    activity.Config{Limit: 200, Latest: 5, BaseURL: client.BaseURL()},
		Display:     overlay.Config{Width: 320, Height: 240, PixelRatio: 1},
	}, camera, client, hub, nil, logger)

	router := NewRouter(logger, &Dependencies{
		Pipeline:      ctrl,
		Frames:        ctrl,
		Residents:     client,
		Activity:      ctrl.Feed(),
		Hub:           hub,
		RateLimit:     rate,
		ResidentRole:  "Penghuni",
		MinNameLength: 2,
	})
	router.Setup()

	t.Cleanup(func() {
		_ = ctrl.Shutdown()
		_ = router.Shutdown()
	})
	return &testRouter{router: router, ctrl: ctrl}
}

func (tr *testRouter) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := tr.router.App().Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func TestRouter_Health(t *testing.T) {
	router := NewRouter(discardLogger(), nil)
	router.Setup()

	resp, err := router.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = router.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRouter_HealthCountsDashboards(t *testing.T) {
	tr := newTestRouter(t, middleware.RateLimiterConfig{Max: 100})

	resp := tr.do(t, "GET", "/health", "")
	require.Equal(t, 200, resp.StatusCode)
	var health handler.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.NotNil(t, health.Dashboards)
	assert.Equal(t, 0, *health.Dashboards)
}

func TestRouter_CameraAndRecognitionFlow(t *testing.T) {
	tr := newTestRouter(t, middleware.RateLimiterConfig{Max: 100})

	resp := tr.do(t, "GET", "/api/frame.jpg", "")
	assert.Equal(t, 503, resp.StatusCode, "no frame before the camera is started")

	resp = tr.do(t, "POST", "/api/camera/start", "")
	require.Equal(t, 200, resp.StatusCode)
	var status pipeline.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "active", status.Camera)
	assert.Equal(t, "idle", status.Mode)

	resp = tr.do(t, "GET", "/api/frame.jpg", "")
	require.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	img, err := jpeg.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())

	resp = tr.do(t, "POST", "/api/recognition/start", "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, pipeline.ModeRecognition, tr.ctrl.Mode())

	resp = tr.do(t, "POST", "/api/enrollment/start", `{"name":"Ana"}`)
	assert.Equal(t, 409, resp.StatusCode)

	assert.Eventually(t, func() bool {
		return tr.ctrl.Snapshot().FramesSent > 0
	}, 2*time.Second, 10*time.Millisecond)

	resp = tr.do(t, "POST", "/api/recognition/stop", "")
	require.Equal(t, 200, resp.StatusCode)

	resp = tr.do(t, "POST", "/api/camera/stop", "")
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.False(t, status.Recognition)
}

func TestRouter_ResidentsProxy(t *testing.T) {
	tr := newTestRouter(t, middleware.RateLimiterConfig{Max: 100})

	resp := tr.do(t, "GET", "/api/residents", "")
	require.Equal(t, 200, resp.StatusCode)

	var residents []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&residents))
	require.Len(t, residents, 1)
	assert.Equal(t, "Ana", residents[0]["name"])
}

func TestRouter_ControlRoutesAreRateLimited(t *testing.T) {
	tr := newTestRouter(t, middleware.RateLimiterConfig{Max: 2, Window: time.Minute})

	for i := 0; i < 2; i++ {
		resp := tr.do(t, "POST", "/api/enrollment/cancel", "")
		assert.Equal(t, 200, resp.StatusCode)
	}
	resp := tr.do(t, "POST", "/api/enrollment/cancel", "")
	assert.Equal(t, 429, resp.StatusCode)

	// Reads are not limited.
	for i := 0; i < 5; i++ {
		resp = tr.do(t, "GET", "/api/status", "")
		assert.Equal(t, 200, resp.StatusCode)
	}
}

func TestRouter_WebsocketRequiresUpgrade(t *testing.T) {
	tr := newTestRouter(t, middleware.RateLimiterConfig{})

	resp := tr.do(t, "GET", "/ws", "")
	assert.Equal(t, 426, resp.StatusCode)
}
