package handler

import (
	"bufio"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/overlay"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/pipeline"
)

const mjpegBoundary = "homeguardframe"

// Bounds on the display a client may ask frames to be rendered for.
const (
	maxDisplaySide = 4096
	maxPixelRatio  = 4.0
)

// FrameSource renders the current camera frame with the overlay applied,
// and the card shown while there is none.
type FrameSource interface {
	LiveFrame(opts pipeline.FrameOptions) ([]byte, error)
	PlaceholderFrame(opts pipeline.FrameOptions) ([]byte, error)
}

type StreamConfig struct {
	Interval time.Duration
	Quality  int
	// KeepAlive is the longest an open stream goes without a part. While
	// the camera is off the placeholder card is sent at this pace.
	KeepAlive time.Duration
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{Interval: 100 * time.Millisecond, Quality: 80, KeepAlive: time.Second}
}

type StreamHandler struct {
	source FrameSource
	config StreamConfig
	done   <-chan struct{}
	logger *slog.Logger
}

// NewStreamHandler serves live frames. Open streams end when done is closed.
func NewStreamHandler(source FrameSource, config StreamConfig, done <-chan struct{}, logger *slog.Logger) *StreamHandler {
	def := DefaultStreamConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Quality <= 0 {
		config.Quality = def.Quality
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = def.KeepAlive
	}
	return &StreamHandler{source: source, config: config, done: done, logger: logger}
}

type displayQuery struct {
	Width      int     `query:"w"`
	Height     int     `query:"h"`
	PixelRatio float64 `query:"dpr"`
}

// frameOptions reads the displayed size of the feed from ?w=&h=&dpr=.
// Omitted values fall back to the configured display.
func (h *StreamHandler) frameOptions(c *fiber.Ctx) (pipeline.FrameOptions, error) {
	var q displayQuery
	if err := c.QueryParser(&q); err != nil {
		return pipeline.FrameOptions{}, domain.ErrBadRequest.WithError(err)
	}
	if q.Width < 0 || q.Width > maxDisplaySide || q.Height < 0 || q.Height > maxDisplaySide {
		return pipeline.FrameOptions{}, domain.ErrBadRequest.WithMessage(fmt.Sprintf("w and h must be between 1 and %d", maxDisplaySide))
	}
	if (q.Width == 0) != (q.Height == 0) {
		return pipeline.FrameOptions{}, domain.ErrBadRequest.WithMessage("w and h must be given together")
	}
	if q.PixelRatio < 0 || q.PixelRatio > maxPixelRatio {
		return pipeline.FrameOptions{}, domain.ErrBadRequest.WithMessage(fmt.Sprintf("dpr must be between 0 and %g", maxPixelRatio))
	}
	return pipeline.FrameOptions{
		Quality: h.config.Quality,
		Display: overlay.Config{Width: q.Width, Height: q.Height, PixelRatio: q.PixelRatio},
	}, nil
}

// Frame GET /api/frame.jpg
func (h *StreamHandler) Frame(c *fiber.Ctx) error {
	opts, err := h.frameOptions(c)
	if err != nil {
		return err
	}
	frame, err := h.source.LiveFrame(opts)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(frame)
}

// MJPEG GET /stream.mjpeg
//
// While no frame can be produced (camera stopped or still warming up) the
// placeholder card is sent every KeepAlive, so the dashboard shows the
// camera state and a closed client is noticed on the next write.
func (h *StreamHandler) MJPEG(c *fiber.Ctx) error {
	opts, err := h.frameOptions(c)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// Headers go out before the first part so the client sees the stream
	// open even while the camera is off.
	c.Context().Response.ImmediateHeaderFlush = true
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(h.config.Interval)
		defer ticker.Stop()

		var lastWrite time.Time
		for {
			frame, err := h.source.LiveFrame(opts)
			if err != nil && time.Since(lastWrite) >= h.config.KeepAlive {
				frame, err = h.source.PlaceholderFrame(opts)
			}
			if err == nil {
				if err := writePart(w, frame); err != nil {
					h.logger.Debug("mjpeg client gone", slog.Any("error", err))
					return
				}
				lastWrite = time.Now()
			}

			select {
			case <-h.done:
				return
			case <-ticker.C:
			}
		}
	})
	return nil
}

func writePart(w *bufio.Writer, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
