// Package glestest provides an in-memory native window for tests.
package glestest

import (
	"image"
	"sync"

	"github.com/junsooki/airview/internal/gles"
)

// Window is a native window that counts references and keeps a copy of the
// last presented frame. Like a real window it starts with one reference,
// owned by its creator.
type Window struct {
	width, height int

	mu        sync.Mutex
	refs      int
	presented int
	last      *image.RGBA
}

var (
	_ gles.NativeWindow = (*Window)(nil)
	_ gles.Presenter    = (*Window)(nil)
)

// NewWindow returns a width x height window holding one reference.
func NewWindow(width, height int) *Window {
	return &Window{width: width, height: height, refs: 1}
}

func (w *Window) Size() (int, int) { return w.width, w.height }

func (w *Window) Acquire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.refs++
}

func (w *Window) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.refs == 0 {
		panic("glestest: window released with no references")
	}
	w.refs--
}

func (w *Window) Present(frame *image.RGBA) {
	cp := image.NewRGBA(frame.Rect)
	copy(cp.Pix, frame.Pix)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.presented++
	w.last = cp
}

// Refs returns the number of outstanding references.
func (w *Window) Refs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refs
}

// Presented returns how many frames have been presented.
func (w *Window) Presented() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presented
}

// Last returns a copy of the most recently presented frame, or nil.
func (w *Window) Last() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
