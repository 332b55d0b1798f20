package overlay

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

func detected(source domain.ImageSize, faces ...domain.FaceBox) domain.RecognitionResult {
	return domain.RecognitionResult{
		Outcome: domain.OutcomeDetected,
		Faces:   faces,
		Source:  source,
	}
}

func TestRenderer_Resize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		ratio         float64
		wantW, wantH  int
	}{
		{name: "unit ratio", width: 1280, height: 720, ratio: 1, wantW: 1280, wantH: 720},
		{name: "retina", width: 640, height: 360, ratio: 2, wantW: 1280, wantH: 720},
		{name: "fractional ratio floors", width: 333, height: 111, ratio: 1.5, wantW: 499, wantH: 166},
		{name: "zero ratio treated as one", width: 100, height: 50, ratio: 0, wantW: 100, wantH: 50},
		{name: "zero size clamps to one pixel", width: 0, height: 0, ratio: 1, wantW: 1, wantH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{Width: tt.width, Height: tt.height, PixelRatio: tt.ratio})
			w, h := r.BackingSize()
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestRenderer_ResizeOnlyOnChange(t *testing.T) {
	r := New(Config{Width: 640, Height: 360, PixelRatio: 1})

	assert.False(t, r.Resize(640, 360, 1))
	assert.False(t, r.Resize(320, 180, 2))
	assert.True(t, r.Resize(641, 360, 1))
	assert.True(t, r.Resize(320, 180, 1))
}

func TestRenderer_DrawScalesToBackingStore(t *testing.T) {
	r := New(Config{Width: 1280, Height: 720, PixelRatio: 1})

	r.Draw(detected(domain.ImageSize{W: 640, H: 360}, domain.FaceBox{
		Box:   domain.BoundingBox{X: 10, Y: 20, W: 30, H: 40},
		Known: true,
		Name:  "Ana",
	}))

	boxes := r.Boxes()
	require.Len(t, boxes, 1)
	assert.Equal(t, image.Rect(20, 40, 80, 120), boxes[0].Rect)
	assert.Equal(t, "Resident: Ana", boxes[0].Label)
	assert.Equal(t, KnownColor, boxes[0].Color)

	// Left edge of the stroke is painted in the known colour.
	assert.Equal(t, KnownColor, r.Snapshot().RGBAAt(20, 100))
}

func TestRenderer_UnknownFace(t *testing.T) {
	r := New(Config{Width: 640, Height: 480, PixelRatio: 1})

	r.Draw(detected(domain.ImageSize{W: 640, H: 480}, domain.FaceBox{
		Box:  domain.BoundingBox{X: 100, Y: 100, W: 50, H: 50},
		Name: "Budi",
	}))

	boxes := r.Boxes()
	require.Len(t, boxes, 1)
	assert.Equal(t, "Unknown", boxes[0].Label)
	assert.Equal(t, UnknownColor, boxes[0].Color)
	assert.False(t, boxes[0].Known)
}

func TestRenderer_ChipClampedToTopEdge(t *testing.T) {
	r := New(Config{Width: 640, Height: 480, PixelRatio: 1})

	r.Draw(detected(domain.ImageSize{W: 640, H: 480},
		domain.FaceBox{Box: domain.BoundingBox{X: 5, Y: 3, W: 40, H: 40}, Known: true, Name: "Ana"},
		domain.FaceBox{Box: domain.BoundingBox{X: 200, Y: 200, W: 40, H: 40}},
	))

	boxes := r.Boxes()
	require.Len(t, boxes, 2)
	assert.Equal(t, 0, boxes[0].Chip.Min.Y)
	assert.Equal(t, 20, boxes[0].Chip.Dy())
	assert.Equal(t, 200-20-2, boxes[1].Chip.Min.Y)
}

func TestRenderer_PixelRatioScalesChip(t *testing.T) {
	r := New(Config{Width: 320, Height: 240, PixelRatio: 2})

	r.Draw(detected(domain.ImageSize{W: 320, H: 240}, domain.FaceBox{
		Box: domain.BoundingBox{X: 100, Y: 100, W: 20, H: 20},
	}))

	boxes := r.Boxes()
	require.Len(t, boxes, 1)
	assert.Equal(t, image.Rect(200, 200, 240, 240), boxes[0].Rect)
	assert.Equal(t, 40, boxes[0].Chip.Dy())
	assert.Equal(t, 200-40-4, boxes[0].Chip.Min.Y)
}

func TestRenderer_RedrawIsIdempotent(t *testing.T) {
	r := New(Config{Width: 640, Height: 360, PixelRatio: 1})
	result := detected(domain.ImageSize{W: 640, H: 360},
		domain.FaceBox{Box: domain.BoundingBox{X: 10, Y: 40, W: 100, H: 100}, Known: true, Name: "Ana"},
	)

	r.Draw(result)
	first := r.Snapshot()

	r.Draw(detected(domain.ImageSize{W: 640, H: 360},
		domain.FaceBox{Box: domain.BoundingBox{X: 300, Y: 200, W: 50, H: 50}},
	))
	r.Draw(result)
	second := r.Snapshot()

	assert.Equal(t, first.Pix, second.Pix)
	assert.Len(t, r.Boxes(), 1)
}

func TestRenderer_NoFaceClears(t *testing.T) {
	r := New(Config{Width: 320, Height: 240, PixelRatio: 1})
	r.Draw(detected(domain.ImageSize{W: 320, H: 240},
		domain.FaceBox{Box: domain.BoundingBox{X: 10, Y: 30, W: 50, H: 50}},
	))
	require.NotEmpty(t, r.Boxes())

	r.Draw(domain.RecognitionResult{Outcome: domain.OutcomeNoFace})

	assert.Empty(t, r.Boxes())
	for _, p := range r.Snapshot().Pix {
		if p != 0 {
			t.Fatal("canvas not fully cleared")
		}
	}
}

func TestRenderer_Compose(t *testing.T) {
	r := New(Config{Width: 100, Height: 50, PixelRatio: 1})
	frame := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for i := 0; i < len(frame.Pix); i += 4 {
		frame.Pix[i+2] = 0xff
		frame.Pix[i+3] = 0xff
	}

	r.Draw(detected(domain.ImageSize{W: 200, H: 100},
		domain.FaceBox{Box: domain.BoundingBox{X: 20, Y: 60, W: 40, H: 20}, Known: true, Name: "Ana"},
	))
	out := r.Compose(frame)

	assert.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())
	px := out.RGBAAt(99, 49)
	assert.InDelta(t, 0xff, int(px.B), 2)
	assert.InDelta(t, 0, int(px.R), 2)
	assert.Equal(t, KnownColor, out.RGBAAt(10, 40))
}

func TestFit(t *testing.T) {
	tests := []struct {
		name           string
		display        Config
		frameW, frameH int
		wantW, wantH   int
	}{
		{name: "4:3 frame in 16:9 display", display: Config{Width: 1280, Height: 720}, frameW: 640, frameH: 480, wantW: 960, wantH: 720},
		{name: "16:9 frame in 4:3 display", display: Config{Width: 640, Height: 480}, frameW: 1920, frameH: 1080, wantW: 640, wantH: 360},
		{name: "same aspect", display: Config{Width: 320, Height: 240}, frameW: 640, frameH: 480, wantW: 320, wantH: 240},
		{name: "portrait frame", display: Config{Width: 1280, Height: 720}, frameW: 480, frameH: 640, wantW: 540, wantH: 720},
		{name: "unknown frame size keeps display", display: Config{Width: 1280, Height: 720}, frameW: 0, frameH: 0, wantW: 1280, wantH: 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.display, tt.frameW, tt.frameH)
			assert.Equal(t, tt.wantW, got.Width)
			assert.Equal(t, tt.wantH, got.Height)
		})
	}
}

func TestRenderer_ComposeKeepsFrameAspect(t *testing.T) {
	r := New(Config{Width: 1280, Height: 720, PixelRatio: 1})
	r.Draw(detected(domain.ImageSize{W: 640, H: 480},
		domain.FaceBox{Box: domain.BoundingBox{X: 100, Y: 100, W: 100, H: 100}, Known: true, Name: "Ana"},
	))

	out := r.Compose(image.NewRGBA(image.Rect(0, 0, 640, 480)))

	assert.Equal(t, image.Rect(0, 0, 960, 720), out.Bounds())
	boxes := r.Boxes()
	require.Len(t, boxes, 1)
	assert.Equal(t, image.Rect(150, 150, 300, 300), boxes[0].Rect)
	assert.Equal(t, boxes[0].Rect.Dx(), boxes[0].Rect.Dy(), "square face stays square")
}

func TestRenderer_RenderFollowsDisplayChanges(t *testing.T) {
	r := New(Config{Width: 1280, Height: 720, PixelRatio: 1})
	frame := image.NewRGBA(image.Rect(0, 0, 640, 480))
	result := detected(domain.ImageSize{W: 640, H: 480},
		domain.FaceBox{Box: domain.BoundingBox{X: 100, Y: 100, W: 100, H: 100}},
	)
	r.Draw(result)

	out := r.Render(frame, Config{Width: 640, Height: 480, PixelRatio: 1})
	assert.Equal(t, image.Rect(0, 0, 640, 480), out.Bounds())
	require.Len(t, r.Boxes(), 1)
	assert.Equal(t, image.Rect(100, 100, 200, 200), r.Boxes()[0].Rect)

	// The dashboard shrank between ticks.
	out = r.Render(frame, Config{Width: 320, Height: 240, PixelRatio: 1})
	assert.Equal(t, image.Rect(0, 0, 320, 240), out.Bounds())
	require.Len(t, r.Boxes(), 1)
	assert.Equal(t, image.Rect(50, 50, 100, 100), r.Boxes()[0].Rect)

	// Same layout size on a denser screen.
	out = r.Render(frame, Config{Width: 320, Height: 240, PixelRatio: 2})
	assert.Equal(t, image.Rect(0, 0, 640, 480), out.Bounds())
	require.Len(t, r.Boxes(), 1)
	assert.Equal(t, image.Rect(100, 100, 200, 200), r.Boxes()[0].Rect)
	assert.Equal(t, 40, r.Boxes()[0].Chip.Dy())

	// The next tick draws at the current size.
	r.Draw(detected(domain.ImageSize{W: 640, H: 480},
		domain.FaceBox{Box: domain.BoundingBox{X: 0, Y: 240, W: 320, H: 240}},
	))
	assert.Equal(t, image.Rect(0, 240, 320, 480), r.Boxes()[0].Rect)
}

func TestRenderer_ResizeRedrawsLastResult(t *testing.T) {
	r := New(Config{Width: 640, Height: 480, PixelRatio: 1})
	r.Draw(detected(domain.ImageSize{W: 640, H: 480},
		domain.FaceBox{Box: domain.BoundingBox{X: 200, Y: 200, W: 40, H: 40}},
	))

	require.True(t, r.Resize(320, 240, 1))
	require.Len(t, r.Boxes(), 1)
	assert.Equal(t, image.Rect(100, 100, 120, 120), r.Boxes()[0].Rect)

	r.Clear()
	require.True(t, r.Resize(640, 480, 1))
	assert.Empty(t, r.Boxes(), "a cleared canvas stays clear after resize")
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder(Config{Width: 320, Height: 240, PixelRatio: 2}, "Kamera belum aktif")

	assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())
	assert.Equal(t, PlaceholderBackground, img.RGBAAt(0, 0))

	var textPixels int
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			if img.RGBAAt(x, y) != PlaceholderBackground {
				textPixels++
			}
		}
	}
	assert.Positive(t, textPixels)
}
