package media

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SyntheticScheme selects the synthetic device in CAMERA_URL, optionally
// with a size: "synthetic://1280x720".
const SyntheticScheme = "synthetic://"

// SyntheticDevice produces a moving test pattern. It stands in for a camera
// in demos and headless runs.
type SyntheticDevice struct {
	Width  int
	Height int

	opened atomic.Int32
	stops  atomic.Int32
}

func NewSyntheticDevice(width, height int) *SyntheticDevice {
	return &SyntheticDevice{Width: width, Height: height}
}

// ParseSynthetic reads "synthetic://WxH". The size defaults to 640x480.
func ParseSynthetic(raw string) (*SyntheticDevice, bool) {
	if !strings.HasPrefix(raw, SyntheticScheme) {
		return nil, false
	}
	w, h := 640, 480
	if size := strings.TrimPrefix(raw, SyntheticScheme); size != "" {
		parts := strings.SplitN(size, "x", 2)
		if len(parts) == 2 {
			pw, errW := strconv.Atoi(parts[0])
			ph, errH := strconv.Atoi(parts[1])
			if errW == nil && errH == nil && pw > 0 && ph > 0 {
				w, h = pw, ph
			}
		}
	}
	return NewSyntheticDevice(w, h), true
}

func (d *SyntheticDevice) Name() string {
	return fmt.Sprintf("%s%dx%d", SyntheticScheme, d.Width, d.Height)
}

func (d *SyntheticDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.opened.Add(1)
	return &syntheticStream{
		device:  d,
		started: time.Now(),
		frame:   image.NewRGBA(image.Rect(0, 0, d.Width, d.Height)),
	}, nil
}

// Opened counts successful Open calls.
func (d *SyntheticDevice) Opened() int {
	return int(d.opened.Load())
}

// Stops counts streams stopped for the first time.
func (d *SyntheticDevice) Stops() int {
	return int(d.stops.Load())
}

type syntheticStream struct {
	device  *SyntheticDevice
	started time.Time

	mu      sync.Mutex
	frame   *image.RGBA
	seq     int
	stopped bool
}

func (s *syntheticStream) ReadyState() ReadyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return HaveNothing
	}
	return HaveEnoughData
}

// Frame renders a diagonal gradient that shifts on every call.
func (s *syntheticStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrNoFrame
	}

	s.seq++
	b := s.frame.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint8((x + y + s.seq*4) % 256)
			out.SetRGBA(x, y, color.RGBA{R: v, G: 255 - v, B: uint8(s.seq % 256), A: 255})
		}
	}
	s.frame = out
	return out, nil
}

func (s *syntheticStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	s.device.stops.Add(1)
	return nil
}
