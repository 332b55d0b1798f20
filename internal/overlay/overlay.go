// Package overlay draws recognition boxes on a transparent backing store
// that is composited over the live frames.
package overlay

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

var (
	KnownColor   = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
	UnknownColor = color.RGBA{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff}
	TextColor    = color.RGBA{R: 0x0b, G: 0x10, B: 0x20, A: 0xff}
)

// Geometry in display pixels; multiplied by the pixel ratio when drawn.
const (
	lineWidth  = 3
	chipHeight = 20
	chipGap    = 2
	chipPad    = 6
	textInset  = 3
	chipAlpha  = 0.85
)

// Config describes the displayed surface.
type Config struct {
	Width      int
	Height     int
	PixelRatio float64
}

// Fit shrinks the display box to the largest size with the frame's aspect
// ratio, the way a video element letterboxes its source.
func Fit(display Config, frameW, frameH int) Config {
	if frameW <= 0 || frameH <= 0 || display.Width <= 0 || display.Height <= 0 {
		return display
	}
	w := float64(display.Width)
	h := w * float64(frameH) / float64(frameW)
	if h > float64(display.Height) {
		h = float64(display.Height)
		w = h * float64(frameW) / float64(frameH)
	}
	display.Width = max(1, int(math.Round(w)))
	display.Height = max(1, int(math.Round(h)))
	return display
}

// DrawnBox records what a Draw call put on the canvas, in backing pixels.
type DrawnBox struct {
	Rect  image.Rectangle
	Chip  image.Rectangle
	Label string
	Known bool
	Color color.RGBA
}

// Renderer owns the overlay backing store. It is safe for concurrent use:
// the recognition task draws while stream handlers composite.
type Renderer struct {
	mu         sync.RWMutex
	display    Config
	canvas     *image.RGBA
	pixelRatio float64
	last       domain.RecognitionResult
	boxes      []DrawnBox
	face       font.Face
}

// New sizes the backing store for cfg, which is also the display used by
// Compose.
func New(cfg Config) *Renderer {
	r := &Renderer{display: cfg, face: basicfont.Face7x13}
	r.Resize(cfg.Width, cfg.Height, cfg.PixelRatio)
	return r
}

// Resize matches the backing store to the displayed size times the pixel
// ratio. When the backing size changes the store is reallocated and the
// last result is drawn again at the new scale.
func (r *Renderer) Resize(width, height int, pixelRatio float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resizeLocked(width, height, pixelRatio)
}

func (r *Renderer) resizeLocked(width, height int, pixelRatio float64) bool {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	w := max(1, int(math.Floor(float64(width)*pixelRatio)))
	h := max(1, int(math.Floor(float64(height)*pixelRatio)))

	dprChanged := r.pixelRatio != pixelRatio
	r.pixelRatio = pixelRatio
	if r.canvas != nil && r.canvas.Bounds().Dx() == w && r.canvas.Bounds().Dy() == h {
		if dprChanged {
			r.drawLocked()
		}
		return false
	}
	r.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	r.drawLocked()
	return true
}

// BackingSize returns the raster dimensions.
func (r *Renderer) BackingSize() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b := r.canvas.Bounds()
	return b.Dx(), b.Dy()
}

func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked()
}

func (r *Renderer) clearLocked() {
	clear(r.canvas.Pix)
	r.boxes = nil
	r.last = domain.RecognitionResult{}
}

// Draw replaces whatever is on the canvas with the boxes of result.
// Results without detections leave the canvas empty.
func (r *Renderer) Draw(result domain.RecognitionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = result
	r.drawLocked()
}

func (r *Renderer) drawLocked() {
	clear(r.canvas.Pix)
	r.boxes = nil

	result := r.last
	if !result.Detected() || len(result.Faces) == 0 {
		return
	}

	bw, bh := r.canvas.Bounds().Dx(), r.canvas.Bounds().Dy()
	sx, sy := 1.0, 1.0
	if result.Source.Valid() {
		sx = float64(bw) / float64(result.Source.W)
		sy = float64(bh) / float64(result.Source.H)
	}

	for _, f := range result.Faces {
		r.boxes = append(r.boxes, r.drawFace(f, sx, sy))
	}
}

func (r *Renderer) drawFace(f domain.FaceBox, sx, sy float64) DrawnBox {
	dpr := r.pixelRatio
	rect := image.Rect(
		scale(f.Box.X, sx),
		scale(f.Box.Y, sy),
		scale(f.Box.X+f.Box.W, sx),
		scale(f.Box.Y+f.Box.H, sy),
	)

	c := UnknownColor
	label := domain.UnknownName
	if f.Known {
		c = KnownColor
		label = "Resident: " + f.DisplayName()
	}

	strokeRect(r.canvas, rect, scaleLen(lineWidth, dpr), c)

	pad := scaleLen(chipPad, dpr)
	chipH := scaleLen(chipHeight, dpr)
	textW := font.MeasureString(r.face, label).Ceil()
	chipY := max(0, rect.Min.Y-chipH-scaleLen(chipGap, dpr))
	chip := image.Rect(rect.Min.X, chipY, rect.Min.X+textW+2*pad, chipY+chipH)

	fill := color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(chipAlpha * 255))}
	draw.Draw(r.canvas, chip, image.NewUniform(fill), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  r.canvas,
		Src:  image.NewUniform(TextColor),
		Face: r.face,
		Dot:  fixed.P(chip.Min.X+pad, chip.Min.Y+scaleLen(textInset, dpr)+r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(label)

	return DrawnBox{Rect: rect, Chip: chip, Label: label, Known: f.Known, Color: c}
}

// Boxes returns the boxes drawn by the last Draw.
func (r *Renderer) Boxes() []DrawnBox {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DrawnBox, len(r.boxes))
	copy(out, r.boxes)
	return out
}

// Snapshot copies the backing store.
func (r *Renderer) Snapshot() *image.RGBA {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := image.NewRGBA(r.canvas.Bounds())
	copy(out.Pix, r.canvas.Pix)
	return out
}

// Compose renders frame for the configured display. See Render.
func (r *Renderer) Compose(frame image.Image) *image.RGBA {
	return r.Render(frame, Config{})
}

// Render fits display to the frame's aspect ratio, resizes the backing
// store to match, and returns the frame scaled to it with the overlay on
// top. Zero fields of display fall back to the configured display.
func (r *Renderer) Render(frame image.Image, display Config) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	if display.Width <= 0 || display.Height <= 0 {
		display.Width, display.Height = r.display.Width, r.display.Height
	}
	if display.PixelRatio <= 0 {
		display.PixelRatio = r.display.PixelRatio
	}
	if frame != nil {
		display = Fit(display, frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	r.resizeLocked(display.Width, display.Height, display.PixelRatio)

	out := image.NewRGBA(r.canvas.Bounds())
	if frame != nil {
		draw.ApproxBiLinear.Scale(out, out.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	}
	draw.Draw(out, out.Bounds(), r.canvas, image.Point{}, draw.Over)
	return out
}

func scale(v int, factor float64) int {
	return int(math.Round(float64(v) * factor))
}

func scaleLen(v int, dpr float64) int {
	return max(1, int(math.Round(float64(v)*dpr)))
}

// strokeRect draws a border of width lw centred on the edges of rect.
func strokeRect(dst draw.Image, rect image.Rectangle, lw int, c color.Color) {
	half := lw / 2
	outer := image.Rect(rect.Min.X-half, rect.Min.Y-half, rect.Max.X+lw-half, rect.Max.Y+lw-half)
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+lw),
		image.Rect(outer.Min.X, outer.Max.Y-lw, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+lw, outer.Max.Y),
		image.Rect(outer.Max.X-lw, outer.Min.Y, outer.Max.X, outer.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}
