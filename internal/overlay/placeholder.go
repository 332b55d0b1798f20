package overlay

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var PlaceholderBackground = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
var PlaceholderText = color.RGBA{R: 0xcb, G: 0xd5, B: 0xe1, A: 0xff}

// Placeholder renders the card shown instead of the feed while no frame is
// available: text centred on a dark background, sized like the display.
func Placeholder(display Config, text string) *image.RGBA {
	if display.PixelRatio <= 0 {
		display.PixelRatio = 1
	}
	w := max(1, int(math.Floor(float64(display.Width)*display.PixelRatio)))
	h := max(1, int(math.Floor(float64(display.Height)*display.PixelRatio)))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(PlaceholderBackground), image.Point{}, draw.Src)
	if text == "" {
		return img
	}

	face := basicfont.Face7x13
	d := font.Drawer{Dst: img, Src: image.NewUniform(PlaceholderText), Face: face}
	textW := d.MeasureString(text).Ceil()
	x := max(0, (w-textW)/2)
	y := (h + face.Metrics().Ascent.Ceil()) / 2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
	return img
}
