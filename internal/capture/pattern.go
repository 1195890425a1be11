package capture

import (
	"fmt"
	"image"
	"image/color"
)

var bars = []color.RGBA{
	{0xC0, 0xC0, 0xC0, 0xFF}, // gray
	{0xC0, 0xC0, 0x00, 0xFF}, // yellow
	{0x00, 0xC0, 0xC0, 0xFF}, // cyan
	{0x00, 0xC0, 0x00, 0xFF}, // green
	{0xC0, 0x00, 0xC0, 0xFF}, // magenta
	{0xC0, 0x00, 0x00, 0xFF}, // red
	{0x00, 0x00, 0xC0, 0xFF}, // blue
}

// PatternSource produces color bars with a white line sweeping across them,
// so motion is visible at the receiving end.
type PatternSource struct {
	*ticker
}

var _ Source = (*PatternSource)(nil)

// NewPattern creates a width x height test pattern source at the given FPS.
func NewPattern(width, height, fps int) (*PatternSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pattern size must be positive, got %dx%d", width, height)
	}
	t, err := newTicker(fps, func(n int) (*image.RGBA, error) {
		return Render(width, height, n), nil
	})
	if err != nil {
		return nil, err
	}
	return &PatternSource{ticker: t}, nil
}

// Render draws frame n of the pattern.
func Render(width, height, n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	sweep := n % width
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			c := bars[x*len(bars)/width]
			if x == sweep {
				c = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
			}
			i := 4 * x
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return img
}
