// Package enroll records the burst of native-resolution samples used to
// enroll a resident.
package enroll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/sampler"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// Session is the live camera session samples are drawn from.
type Session interface {
	Active() bool
	Stream() media.Stream
}

// Capture is a completed sample buffer, in capture order.
type Capture struct {
	RunID      uuid.UUID
	Name       string
	ResidentID *int64
	Frames     []domain.SampledFrame
	StartedAt  time.Time
}

// Finalizer receives the buffer once the target count is reached. The
// recorder stays in StateFinalizing while it runs. The returned func, if
// any, is called once the recorder is idle again.
type Finalizer func(ctx context.Context, capture Capture) (after func())

// ProgressFunc is called after every captured frame.
type ProgressFunc func(captured, target int)

type Config struct {
	Interval      time.Duration
	Target        int
	Quality       int
	MinNameLength int
}

func DefaultConfig() Config {
	return Config{
		Interval:      100 * time.Millisecond,
		Target:        500,
		Quality:       92,
		MinNameLength: 2,
	}
}

// Recorder captures one frame per tick until Target frames are buffered,
// then stops ticking and hands the buffer to the finalizer exactly once.
type Recorder struct {
	config   Config
	sampler  *sampler.Sampler
	finalize Finalizer
	progress ProgressFunc
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	session Session
	capture Capture
	cancel  context.CancelFunc
}

func NewRecorder(config Config, finalize Finalizer, progress ProgressFunc, logger *slog.Logger) *Recorder {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Target <= 0 {
		config.Target = def.Target
	}
	if config.Quality <= 0 {
		config.Quality = def.Quality
	}
	return &Recorder{
		config: config,
		// Training samples keep the native resolution.
		sampler:  sampler.New(sampler.Config{TargetWidth: 0, Quality: config.Quality}),
		finalize: finalize,
		progress: progress,
		logger:   logger,
	}
}

// Start begins recording for name. It returns false without error when a
// recording is already in progress. A missing session or a short name is
// rejected with domain.ErrPrecondition and no state change.
func (r *Recorder) Start(ctx context.Context, session Session, name string, residentID *int64) (bool, error) {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle {
		return false, nil
	}
	if session == nil || !session.Active() {
		return false, domain.ErrPrecondition.WithMessage("Kamera belum aktif. Silakan tunggu atau izinkan akses kamera.")
	}
	if utf8.RuneCountInString(name) < r.config.MinNameLength {
		return false, domain.ErrPrecondition.WithMessage(fmt.Sprintf("Nama penghuni minimal %d karakter.", r.config.MinNameLength))
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.state = StateRecording
	r.session = session
	r.cancel = cancel
	r.capture = Capture{
		RunID:      uuid.New(),
		Name:       name,
		ResidentID: residentID,
		Frames:     make([]domain.SampledFrame, 0, r.config.Target),
		StartedAt:  time.Now(),
	}

	r.logger.Info("enrollment recording started",
		slog.String("run_id", r.capture.RunID.String()),
		slog.String("name", name),
		slog.Int("target", r.config.Target),
	)

	go r.run(runCtx, r.capture.RunID)
	return true, nil
}

func (r *Recorder) run(ctx context.Context, runID uuid.UUID) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.step(ctx, runID) {
				return
			}
		}
	}
}

// TickOnce captures a single frame. It returns true when this tick
// completed the buffer and the finalizer has run.
func (r *Recorder) TickOnce(ctx context.Context) bool {
	return r.step(ctx, uuid.Nil)
}

// step ticks the recording identified by runID; uuid.Nil matches any.
func (r *Recorder) step(ctx context.Context, runID uuid.UUID) bool {
	capture, done := r.tick(runID)
	if !done {
		return false
	}
	r.finish(ctx, capture)
	return true
}

func (r *Recorder) tick(runID uuid.UUID) (Capture, bool) {
	r.mu.Lock()

	if r.state != StateRecording || (runID != uuid.Nil && runID != r.capture.RunID) {
		r.mu.Unlock()
		return Capture{}, false
	}

	if len(r.capture.Frames) < r.config.Target {
		frame, ok, err := r.sampler.Sample(r.session.Stream())
		if err != nil {
			r.logger.Warn("enrollment frame capture failed", slog.Any("error", err))
		}
		if ok {
			r.capture.Frames = append(r.capture.Frames, frame)
		}
	}

	captured := len(r.capture.Frames)
	if captured < r.config.Target {
		r.mu.Unlock()
		if r.progress != nil {
			r.progress(captured, r.config.Target)
		}
		return Capture{}, false
	}

	r.state = StateFinalizing
	capture := r.capture
	r.mu.Unlock()

	if r.progress != nil {
		r.progress(captured, r.config.Target)
	}
	return capture, true
}

func (r *Recorder) finish(ctx context.Context, capture Capture) {
	r.logger.Info("enrollment recording complete",
		slog.String("run_id", capture.RunID.String()),
		slog.Int("frames", len(capture.Frames)),
		slog.Duration("elapsed", time.Since(capture.StartedAt)),
	)

	var after func()
	if r.finalize != nil {
		after = r.finalize(ctx, capture)
	}

	r.mu.Lock()
	cancel := r.cancel
	r.reset()
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if after != nil {
		after()
	}
}

// Cancel abandons a recording in progress. Buffered frames are dropped and
// the finalizer is not called. It has no effect once finalizing has begun.
func (r *Recorder) Cancel() bool {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return false
	}
	cancel := r.cancel
	runID := r.capture.RunID
	r.reset()
	r.mu.Unlock()

	cancel()
	r.logger.Info("enrollment recording cancelled", slog.String("run_id", runID.String()))
	return true
}

func (r *Recorder) reset() {
	r.state = StateIdle
	r.session = nil
	r.cancel = nil
	r.capture = Capture{}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Progress returns the number of frames buffered and the target.
func (r *Recorder) Progress() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.capture.Frames), r.config.Target
}
