package recognition

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/sampler"
)

// Recognizer sends one encoded frame for recognition.
type Recognizer interface {
	RecognizeFrame(ctx context.Context, frame domain.SampledFrame) (*backend.RecognizeResponse, error)
}

// Overlay is the drawing surface updated on every tick.
type Overlay interface {
	Draw(result domain.RecognitionResult)
	Clear()
}

// StreamSource yields the live stream, or nil once it is gone.
type StreamSource interface {
	Stream() media.Stream
}

// Observer receives the loop's user-facing output. Recognized is called
// only for ticks that detected at least one face.
type Observer interface {
	Status(text string, ok bool)
	Recognized(ctx context.Context, result domain.RecognitionResult)
}

type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: time.Second,
		Timeout:  5 * time.Second,
	}
}

// Loop is the periodic live recognition task. A single goroutine owns the
// ticker, so requests never overlap; ticks that fall due while a request is
// in flight are dropped.
type Loop struct {
	client   Recognizer
	sampler  *sampler.Sampler
	overlay  Overlay
	observer Observer
	config   Config
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	sent atomic.Int64
}

func NewLoop(client Recognizer, s *sampler.Sampler, overlay Overlay, observer Observer, config Config, logger *slog.Logger) *Loop {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Loop{
		client:   client,
		sampler:  s,
		overlay:  overlay,
		observer: observer,
		config:   config,
		logger:   logger,
	}
}

// Start begins ticking against source. Starting a running loop is a no-op
// and returns false.
func (l *Loop) Start(source StreamSource) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go l.run(ctx, source, done)

	l.logger.Info("recognition loop started", slog.Duration("interval", l.config.Interval))
	return true
}

// Stop cancels the loop, waits for an in-flight tick to finish and clears
// the overlay. Safe to call when not running.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	l.overlay.Clear()
	l.observer.Status(StatusStopped, false)
	l.logger.Info("recognition loop stopped", slog.Int64("frames_sent", l.sent.Load()))
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Sent counts frames transmitted since construction.
func (l *Loop) Sent() int64 {
	return l.sent.Load()
}

func (l *Loop) run(ctx context.Context, source StreamSource, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.TickOnce(ctx, source)
		}
	}
}

// TickOnce performs one sample-send-render cycle. Failures degrade to a
// status text and never stop the loop.
func (l *Loop) TickOnce(ctx context.Context, source StreamSource) {
	stream := source.Stream()
	if stream == nil {
		return
	}

	frame, ok, err := l.sampler.Sample(stream)
	if err != nil {
		l.logger.Warn("frame sampling failed", slog.Any("error", err))
		return
	}
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	resp, err := l.client.RecognizeFrame(reqCtx, frame)
	cancel()
	l.sent.Add(1)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.fail(frame, err)
		return
	}

	result := Interpret(resp, domain.ImageSize{W: frame.Width, H: frame.Height})
	if result.Detected() {
		l.overlay.Draw(result)
	} else {
		l.overlay.Clear()
	}
	l.observer.Status(StatusText(result), true)

	if result.Detected() {
		l.logger.Debug("faces detected",
			slog.String("frame_id", frame.ID.String()),
			slog.Int("faces", len(result.Faces)),
			slog.String("label", result.Label.Name),
		)
		l.observer.Recognized(ctx, result)
	}
}

// fail maps a transmission failure to a status. A non-2xx answer means the
// backend is up but rejected the frame; anything else means it is not ready.
func (l *Loop) fail(frame domain.SampledFrame, err error) {
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		l.logger.Warn("recognition rejected",
			slog.String("frame_id", frame.ID.String()),
			slog.Int("status", statusErr.StatusCode),
			slog.String("message", statusErr.Message),
		)
		l.observer.Status(StatusRecognitionErr, false)
		return
	}

	l.logger.Warn("recognition backend not ready",
		slog.String("frame_id", frame.ID.String()),
		slog.Any("error", err),
	)
	l.overlay.Clear()
	l.observer.Status(StatusBackendNotReady, false)
}
