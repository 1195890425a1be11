package capture

import (
	"image"
	"time"
)

// Frame represents a produced video frame.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Time
}

// Source produces frames at a fixed rate until stopped.
type Source interface {
	Start() error
	Stop()
	// Frames is closed after Stop.
	Frames() <-chan *Frame
}
