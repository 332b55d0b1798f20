// Package sampler turns the live stream into encoded stills.
package sampler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/media"
)

const (
	DefaultTargetWidth = 640
	DefaultQuality     = 70
)

type Config struct {
	// TargetWidth is the output width in pixels; height keeps the source
	// aspect ratio. Zero or less keeps the native resolution.
	TargetWidth int
	// Quality is the JPEG quality, 1-100.
	Quality int
}

func DefaultConfig() Config {
	return Config{
		TargetWidth: DefaultTargetWidth,
		Quality:     DefaultQuality,
	}
}

// Sampler draws the current frame into a reusable raster and encodes it.
// It is not safe for concurrent use; each periodic task owns its own.
type Sampler struct {
	config  Config
	raster  *image.RGBA
	resizes int
	buf     bytes.Buffer
	now     func() time.Time
}

func New(config Config) *Sampler {
	if config.Quality < 1 || config.Quality > 100 {
		config.Quality = DefaultQuality
	}
	return &Sampler{
		config: config,
		now:    time.Now,
	}
}

// TargetSize returns the output dimensions for a source of srcW x srcH.
func (s *Sampler) TargetSize(srcW, srcH int) (int, int) {
	if s.config.TargetWidth <= 0 {
		return srcW, srcH
	}
	w := s.config.TargetWidth
	h := int(math.Round(float64(srcH) / float64(srcW) * float64(w)))
	if h < 1 {
		h = 1
	}
	return w, h
}

// Sample encodes the stream's current frame. ok is false when the stream
// has no current frame yet; that is not an error.
func (s *Sampler) Sample(stream media.Stream) (frame domain.SampledFrame, ok bool, err error) {
	if !media.Ready(stream) {
		return domain.SampledFrame{}, false, nil
	}

	src, err := stream.Frame()
	if err != nil {
		return domain.SampledFrame{}, false, nil
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return domain.SampledFrame{}, false, nil
	}

	w, h := s.TargetSize(bounds.Dx(), bounds.Dy())
	raster := s.rasterFor(w, h)
	draw.ApproxBiLinear.Scale(raster, raster.Bounds(), src, bounds, draw.Src, nil)

	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, raster, &jpeg.Options{Quality: s.config.Quality}); err != nil {
		return domain.SampledFrame{}, false, fmt.Errorf("encode frame: %w", err)
	}

	data := make([]byte, s.buf.Len())
	copy(data, s.buf.Bytes())

	return domain.SampledFrame{
		ID:         uuid.New(),
		Width:      w,
		Height:     h,
		Data:       data,
		CapturedAt: s.now(),
	}, true, nil
}

// rasterFor reallocates only when the requested size changes.
func (s *Sampler) rasterFor(w, h int) *image.RGBA {
	if s.raster != nil && s.raster.Bounds().Dx() == w && s.raster.Bounds().Dy() == h {
		return s.raster
	}
	s.raster = image.NewRGBA(image.Rect(0, 0, w, h))
	s.resizes++
	return s.raster
}

// Resizes counts raster allocations.
func (s *Sampler) Resizes() int {
	return s.resizes
}
