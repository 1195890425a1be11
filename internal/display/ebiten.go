package display

import (
	"image"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/airview/internal/logging"
)

// EbitenWindow is a native window backed by an Ebitengine window. The render
// session presents into it from its own goroutine; Ebitengine draws the most
// recent presented frame on the main goroutine.
//
// The window starts with one reference, owned by the creator.
type EbitenWindow struct {
	title  string
	width  int
	height int

	mu          sync.Mutex
	refs        int
	frame       *image.RGBA
	spare       *image.RGBA
	dirty       bool
	ebitenImage *ebiten.Image
}

var _ Display = (*EbitenWindow)(nil)

// NewEbitenWindow creates a window whose drawable surface is width x height.
func NewEbitenWindow(title string, width, height int) *EbitenWindow {
	return &EbitenWindow{
		title:  title,
		width:  width,
		height: height,
		refs:   1,
	}
}

// Size returns the surface size.
func (w *EbitenWindow) Size() (int, int) {
	return w.width, w.height
}

// Acquire adds a reference.
func (w *EbitenWindow) Acquire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refs++
}

// Release drops a reference. With none left, presented frames are ignored.
func (w *EbitenWindow) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.refs == 0 {
		logging.Logger().Warn("window released with no references", "title", w.title)
		return
	}
	w.refs--
}

// Present copies frame for the next Draw (called from the render goroutine).
func (w *EbitenWindow) Present(frame *image.RGBA) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.refs == 0 {
		return
	}
	if w.spare == nil || w.spare.Rect.Size() != frame.Rect.Size() {
		w.spare = image.NewRGBA(image.Rect(0, 0, frame.Rect.Dx(), frame.Rect.Dy()))
	}
	for y := 0; y < frame.Rect.Dy(); y++ {
		src := frame.Pix[y*frame.Stride : y*frame.Stride+4*frame.Rect.Dx()]
		copy(w.spare.Pix[y*w.spare.Stride:], src)
	}
	w.frame, w.spare = w.spare, w.frame
	w.dirty = true
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
func (w *EbitenWindow) Run() error {
	ebiten.SetWindowSize(w.width, w.height)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(w)
}

// --- ebiten.Game interface ---

func (w *EbitenWindow) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (w *EbitenWindow) Draw(screen *ebiten.Image) {
	w.mu.Lock()
	frame := w.frame
	if frame == nil {
		w.mu.Unlock()
		return
	}
	if w.ebitenImage == nil ||
		w.ebitenImage.Bounds().Dx() != frame.Bounds().Dx() ||
		w.ebitenImage.Bounds().Dy() != frame.Bounds().Dy() {
		w.ebitenImage = ebiten.NewImage(frame.Bounds().Dx(), frame.Bounds().Dy())
		w.dirty = true
	}
	if w.dirty {
		w.ebitenImage.WritePixels(frame.Pix)
		w.dirty = false
	}
	w.mu.Unlock()

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	fw, fh := float64(frame.Bounds().Dx()), float64(frame.Bounds().Dy())
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), fw, fh)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(w.ebitenImage, op)
}

func (w *EbitenWindow) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
