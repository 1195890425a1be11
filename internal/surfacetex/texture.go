// Package surfacetex connects a frame producer to an external texture.
//
// Producers Push decoded frames from any goroutine; only the newest one is
// kept. The render loop calls UpdateTexImage once per frame to latch it into
// the texture's storage.
package surfacetex

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/junsooki/airview/internal/gles"
	"github.com/junsooki/airview/internal/logging"
)

// ErrAttached is returned by Attach when another consumer holds the texture.
var ErrAttached = errors.New("surfacetex: texture already attached to a consumer")

// Texture is the producer-facing side of an external texture name.
type Texture struct {
	target gles.ExternalImageTarget
	name   gles.Texture

	mu        sync.Mutex
	pending   image.Image
	pendingAt time.Time
	latchedAt time.Time
	onFrame   func()
	released  bool

	attached    atomic.Bool
	overwritten atomic.Uint64
}

// New wraps texture name, whose storage target updates.
func New(target gles.ExternalImageTarget, name gles.Texture) *Texture {
	return &Texture{target: target, name: name}
}

// Name returns the texture name to bind when drawing.
func (t *Texture) Name() gles.Texture {
	return t.name
}

// SetOnFrameAvailable registers f to be called, on the producer's goroutine,
// after each Push.
func (t *Texture) SetOnFrameAvailable(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFrame = f
}

// Push offers img as the newest frame. The producer must not modify img
// afterwards. A frame that is replaced before it is latched is dropped.
func (t *Texture) Push(img image.Image) {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	if t.pending != nil {
		t.overwritten.Add(1)
	}
	t.pending = img
	t.pendingAt = time.Now()
	cb := t.onFrame
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// UpdateTexImage latches the newest pushed frame into the texture. With no
// new frame the texture keeps its current contents.
func (t *Texture) UpdateTexImage() {
	t.mu.Lock()
	img, at := t.pending, t.pendingAt
	t.pending = nil
	t.mu.Unlock()
	if img == nil {
		return
	}

	if err := t.target.SetExternalImage(t.name, img); err != nil {
		logging.Logger().Debug("latch frame", "texture", t.name, "err", err)
		return
	}
	t.mu.Lock()
	t.latchedAt = at
	t.mu.Unlock()
}

// Timestamp returns when the latched frame was pushed, or the zero time.
func (t *Texture) Timestamp() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latchedAt
}

// Overwritten counts frames replaced before they were latched.
func (t *Texture) Overwritten() uint64 {
	return t.overwritten.Load()
}

// Attach registers the calling render loop as the texture's only consumer.
// The returned func detaches it.
func (t *Texture) Attach() (func(), error) {
	if !t.attached.CompareAndSwap(false, true) {
		return nil, ErrAttached
	}
	var once sync.Once
	return func() {
		once.Do(func() { t.attached.Store(false) })
	}, nil
}

// Attached reports whether a consumer is attached.
func (t *Texture) Attached() bool {
	return t.attached.Load()
}

// Release drops any pending frame and ignores later pushes.
func (t *Texture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.released = true
	t.pending = nil
	t.onFrame = nil
}
