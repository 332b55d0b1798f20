// Package pipeline owns the camera session and arbitrates between live
// recognition and enrollment, which must never share it.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/activity"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/enroll"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/overlay"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/recognition"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/sampler"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/upload"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/ws"
)

// ResidentListPath is where the dashboard returns after an enrollment run.
const ResidentListPath = "/residents"

const refreshTimeout = 10 * time.Second

const cameraNotReady = "Camera not ready"

// Backend is every backend operation the pipeline drives.
type Backend interface {
	recognition.Recognizer
	upload.Backend
	activity.Source
}

// Broadcaster pushes events to dashboards.
type Broadcaster interface {
	Broadcast(eventType ws.EventType, data interface{})
	Status(text string, ok bool)
}

// Publisher forwards detections to external consumers.
type Publisher interface {
	Publish(result domain.RecognitionResult) error
}

type Mode int

const (
	ModeIdle Mode = iota
	ModeRecognition
	ModeEnrollment
)

func (m Mode) String() string {
	switch m {
	case ModeRecognition:
		return "recognition"
	case ModeEnrollment:
		return "enrollment"
	default:
		return "idle"
	}
}

type Config struct {
	Recognition recognition.Config
	Sampler     sampler.Config
	Enroll      enroll.Config
	Upload      upload.Config
	Activity    activity.Config
	Display     overlay.Config
}

// CameraData is the payload of ws.EventCamera.
type CameraData struct {
	State       string `json:"state"`
	Placeholder string `json:"placeholder,omitempty"`
	Mode        string `json:"mode"`
}

// CaptureProgress is the payload of ws.EventEnrollProgress while recording.
type CaptureProgress struct {
	Stage    string `json:"stage"`
	Captured int    `json:"captured"`
	Target   int    `json:"target"`
}

// EnrollmentFinished is the payload of ws.EventEnrollFinished.
type EnrollmentFinished struct {
	upload.Outcome
	Success  bool   `json:"success"`
	Redirect string `json:"redirect"`
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Mode           string           `json:"mode"`
	Camera         string           `json:"camera"`
	Placeholder    string           `json:"placeholder,omitempty"`
	Recognition    bool             `json:"recognition"`
	FramesSent     int64            `json:"frames_sent"`
	Enrollment     string           `json:"enrollment"`
	Captured       int              `json:"captured"`
	Target         int              `json:"target"`
	LastEnrollment *upload.Outcome  `json:"last_enrollment,omitempty"`
	Latest         []activity.Entry `json:"latest_activity"`
}

type Controller struct {
	camera    *media.Manager
	backend   Backend
	events    Broadcaster
	publisher Publisher
	logger    *slog.Logger

	display  overlay.Config
	overlay  *overlay.Renderer
	loop     *recognition.Loop
	recorder *enroll.Recorder
	uploader *upload.Orchestrator
	feed     *activity.Feed

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	mode        Mode
	lastOutcome *upload.Outcome

	refreshing atomic.Bool
}

// New wires the pipeline. publisher may be nil.
func New(config Config, camera *media.Manager, client Backend, events Broadcaster, publisher Publisher, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		camera:    camera,
		backend:   client,
		events:    events,
		publisher: publisher,
		logger:    logger,
		display:   config.Display,
		overlay:   overlay.New(config.Display),
		ctx:       ctx,
		cancel:    cancel,
	}

	c.feed = activity.NewFeed(client, config.Activity, func(entries []activity.Entry) {
		c.events.Broadcast(ws.EventActivity, entries)
	}, logger)
	c.loop = recognition.NewLoop(client, sampler.New(config.Sampler), c.overlay, c, config.Recognition, logger)
	c.uploader = upload.NewOrchestrator(client, config.Upload, upload.Hooks{
		OnProgress: func(p upload.Progress) { c.events.Broadcast(ws.EventEnrollProgress, p) },
	}, logger)
	c.recorder = enroll.NewRecorder(config.Enroll, c.finalize, c.captureProgress, logger)

	return c
}

func (c *Controller) Feed() *activity.Feed {
	return c.feed
}

func (c *Controller) Overlay() *overlay.Renderer {
	return c.overlay
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// StartCamera acquires the camera unless a session is already active.
func (c *Controller) StartCamera(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.ensureSession(ctx)
	c.broadcastCamera()
	return err
}

func (c *Controller) ensureSession(ctx context.Context) (*media.Session, error) {
	if s := c.camera.Current(); s != nil && s.Active() {
		return s, nil
	}
	return c.camera.Acquire(ctx)
}

// StopCamera stops recognition, abandons a recording in progress and
// releases the camera. It refuses while an enrollment is being uploaded.
func (c *Controller) StopCamera() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeEnrollment {
		if !c.recorder.Cancel() {
			return domain.ErrSessionBusy.WithMessage("Enrollment upload in progress")
		}
	}
	if c.mode == ModeRecognition {
		c.loop.Stop()
	}
	c.mode = ModeIdle
	c.overlay.Clear()

	err := c.camera.Release()
	c.broadcastCamera()
	return err
}

// StartRecognition starts the live loop, acquiring the camera if needed.
// It is a no-op while already running.
func (c *Controller) StartRecognition(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeEnrollment:
		return domain.ErrSessionBusy
	case ModeRecognition:
		return nil
	}

	session, err := c.ensureSession(ctx)
	if err != nil {
		c.broadcastCamera()
		return err
	}

	c.loop.Start(session)
	c.mode = ModeRecognition
	c.broadcastCamera()
	return nil
}

// StopRecognition stops the loop but keeps the camera open.
func (c *Controller) StopRecognition() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeRecognition {
		return
	}
	c.loop.Stop()
	c.mode = ModeIdle
	c.broadcastCamera()
}

// StartEnrollment begins recording samples for name on the open camera.
// It returns false without error while an enrollment is already running.
func (c *Controller) StartEnrollment(name string, residentID *int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeRecognition:
		return false, domain.ErrSessionBusy
	case ModeEnrollment:
		return false, nil
	}

	var session enroll.Session
	if s := c.camera.Current(); s != nil {
		session = s
	}

	started, err := c.recorder.Start(c.ctx, session, name, residentID)
	if err != nil || !started {
		return started, err
	}
	c.mode = ModeEnrollment
	c.broadcastCamera()
	return true, nil
}

// CancelEnrollment abandons a recording. The camera stays open.
func (c *Controller) CancelEnrollment() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeEnrollment || !c.recorder.Cancel() {
		return false
	}
	c.mode = ModeIdle
	c.broadcastCamera()
	return true
}

func (c *Controller) captureProgress(captured, target int) {
	c.events.Broadcast(ws.EventEnrollProgress, CaptureProgress{Stage: "capture", Captured: captured, Target: target})
}

// finalize uploads the capture. The enrollment is reported finished only
// after the recorder is idle, so a follow-up StartEnrollment is accepted.
func (c *Controller) finalize(ctx context.Context, capture enroll.Capture) func() {
	outcome := c.uploader.Run(ctx, capture, c.camera)
	return func() { c.finishEnrollment(outcome) }
}

func (c *Controller) finishEnrollment(outcome upload.Outcome) {
	c.mu.Lock()
	c.mode = ModeIdle
	c.lastOutcome = &outcome
	c.overlay.Clear()
	c.broadcastCamera()
	c.mu.Unlock()

	c.events.Broadcast(ws.EventEnrollFinished, EnrollmentFinished{
		Outcome:  outcome,
		Success:  outcome.Err == nil,
		Redirect: ResidentListPath,
	})
}

// Status implements recognition.Observer.
func (c *Controller) Status(text string, ok bool) {
	c.events.Status(text, ok)
}

// Recognized implements recognition.Observer.
func (c *Controller) Recognized(ctx context.Context, result domain.RecognitionResult) {
	c.events.Broadcast(ws.EventRecognition, result)

	if c.publisher != nil {
		if err := c.publisher.Publish(result); err != nil {
			c.logger.Debug("detection not published", slog.Any("error", err))
		}
	}

	c.refreshActivity()
}

// refreshActivity refetches the feed in the background; a refresh already
// in flight absorbs the request.
func (c *Controller) refreshActivity() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.refreshing.Store(false)
		ctx, cancel := context.WithTimeout(c.ctx, refreshTimeout)
		defer cancel()
		_, _ = c.feed.Refresh(ctx)
	}()
}

// FrameOptions shapes a rendered frame. A zero Display renders for the
// configured display.
type FrameOptions struct {
	Quality int
	Display overlay.Config
}

// LiveFrame returns the current camera frame with the overlay composited,
// fitted to opts.Display and encoded as JPEG.
func (c *Controller) LiveFrame(opts FrameOptions) ([]byte, error) {
	session := c.camera.Current()
	if session == nil {
		return nil, domain.ErrDeviceUnavailable.WithMessage(c.camera.Placeholder())
	}
	stream := session.Stream()
	if !media.Ready(stream) {
		return nil, domain.ErrDeviceUnavailable.WithMessage(cameraNotReady)
	}
	frame, err := stream.Frame()
	if err != nil {
		return nil, domain.ErrDeviceUnavailable.WithError(err)
	}
	return encodeFrame(c.overlay.Render(frame, opts.Display), opts.Quality)
}

// PlaceholderFrame renders the camera state text in place of the feed.
func (c *Controller) PlaceholderFrame(opts FrameOptions) ([]byte, error) {
	display := opts.Display
	if display.Width <= 0 || display.Height <= 0 {
		display.Width, display.Height = c.display.Width, c.display.Height
	}
	if display.PixelRatio <= 0 {
		display.PixelRatio = c.display.PixelRatio
	}
	text := c.camera.Placeholder()
	if text == "" {
		text = cameraNotReady
	}
	return encodeFrame(overlay.Placeholder(display, text), opts.Quality)
}

func encodeFrame(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode live frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	mode := c.mode
	last := c.lastOutcome
	c.mu.Unlock()

	captured, target := c.recorder.Progress()
	return Status{
		Mode:           mode.String(),
		Camera:         c.camera.State().String(),
		Placeholder:    c.camera.Placeholder(),
		Recognition:    c.loop.Running(),
		FramesSent:     c.loop.Sent(),
		Enrollment:     c.recorder.State().String(),
		Captured:       captured,
		Target:         target,
		LastEnrollment: last,
		Latest:         c.feed.Latest(),
	}
}

func (c *Controller) broadcastCamera() {
	c.events.Broadcast(ws.EventCamera, CameraData{
		State:       c.camera.State().String(),
		Placeholder: c.camera.Placeholder(),
		Mode:        c.mode.String(),
	})
}

// Shutdown stops every task and releases the camera. An upload in
// progress is cancelled and still runs its cleanup.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	if c.mode == ModeRecognition {
		c.loop.Stop()
	}
	c.recorder.Cancel()
	c.mu.Unlock()

	c.cancel()
	return c.camera.Release()
}
