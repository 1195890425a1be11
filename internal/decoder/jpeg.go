package decoder

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// DefaultMaxPixels bounds decoded frame area (8K UHD).
const DefaultMaxPixels = 7680 * 4320

// JPEGDecoder decodes JPEG bytes into *image.RGBA.
type JPEGDecoder struct {
	maxPixels int
}

var _ Decoder = (*JPEGDecoder)(nil)

func NewJPEGDecoder() *JPEGDecoder {
	return &JPEGDecoder{maxPixels: DefaultMaxPixels}
}

func (d *JPEGDecoder) Decode(data []byte) (*image.RGBA, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width*cfg.Height > d.maxPixels {
		return nil, fmt.Errorf("frame %dx%d exceeds %d pixels", cfg.Width, cfg.Height, d.maxPixels)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	// Convert to RGBA if needed.
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}
