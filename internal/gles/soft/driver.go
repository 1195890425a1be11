// Package soft is a software implementation of the gles device boundary.
//
// It keeps an exact count of every live device, context, surface and GL
// object so tests can assert that a render session released everything it
// acquired, and it can be told to fail any stage of context setup. The
// rasterizer understands passthrough textured-quad programs, which is all
// the renderer issues.
package soft

import (
	"errors"
	"fmt"
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/junsooki/airview/internal/gles"
)

// Faults selects setup stages that fail on purpose.
type Faults struct {
	ChooseConfig  bool
	CreateContext bool
	CreateSurface bool
	// CompileStage is gles.VERTEX_SHADER or gles.FRAGMENT_SHADER; zero disables.
	CompileStage gles.Enum
	Link         bool
}

// Live counts objects that have been created and not yet destroyed.
// Terminate does not reclaim contexts or surfaces, so leaks stay visible.
type Live struct {
	Devices  int
	Contexts int
	Surfaces int
	Programs int
	Shaders  int
	Buffers  int
}

// Zero reports whether nothing is held.
func (l Live) Zero() bool {
	return l == Live{}
}

// Driver is the process-wide entry point and the texture share group.
type Driver struct {
	mu       sync.Mutex
	faults   Faults
	live     Live
	nextTex  gles.Texture
	textures map[gles.Texture]*image.RGBA
}

// New creates a driver with no faults.
func New() *Driver {
	return &Driver{textures: make(map[gles.Texture]*image.RGBA)}
}

// SetFaults replaces the injected failures.
func (d *Driver) SetFaults(f Faults) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = f
}

func (d *Driver) currentFaults() Faults {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faults
}

// Live returns a snapshot of the live object counts.
func (d *Driver) Live() Live {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *Driver) track(f func(l *Live)) {
	d.mu.Lock()
	f(&d.live)
	d.mu.Unlock()
}

// GenTexture allocates a texture name in the share group.
func (d *Driver) GenTexture() gles.Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextTex++
	for d.textures[d.nextTex] != nil || d.nextTex == 0 {
		d.nextTex++
	}
	d.textures[d.nextTex] = &image.RGBA{}
	return d.nextTex
}

// NewTexture registers a caller-chosen texture name, as when the host has
// already allocated one elsewhere.
func (d *Driver) NewTexture(t gles.Texture) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == 0 {
		return errors.New("texture name 0 is reserved")
	}
	if _, ok := d.textures[t]; ok {
		return fmt.Errorf("texture %d already exists", t)
	}
	d.textures[t] = &image.RGBA{}
	return nil
}

// DeleteTexture frees a texture name.
func (d *Driver) DeleteTexture(t gles.Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, t)
}

// SetExternalImage copies img into the storage of texture t.
func (d *Driver) SetExternalImage(t gles.Texture, img image.Image) error {
	b := img.Bounds()
	cp := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(cp, cp.Bounds(), img, b.Min, xdraw.Src)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[t]; !ok {
		return fmt.Errorf("texture %d does not exist", t)
	}
	d.textures[t] = cp
	return nil
}

// textureImage returns the storage of t, or nil when it is empty or unknown.
// The returned image is never written again.
func (d *Driver) textureImage(t gles.Texture) *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	img := d.textures[t]
	if img == nil || img.Rect.Empty() {
		return nil
	}
	return img
}

// Open implements gles.Driver.
func (d *Driver) Open() (gles.Device, error) {
	d.track(func(l *Live) { l.Devices++ })
	return &device{
		d:        d,
		contexts: make(map[*context]struct{}),
		surfaces: make(map[*surface]struct{}),
	}, nil
}

type config struct {
	attrs gles.ConfigAttribs
}

func (c *config) Attribs() gles.ConfigAttribs { return c.attrs }

// The only configuration the software device offers.
var rgba8888 = gles.ConfigAttribs{RedSize: 8, GreenSize: 8, BlueSize: 8, RenderableType: gles.OpenGLES2Bit}

type surface struct {
	win gles.NativeWindow
	fb  *image.RGBA
}

func (s *surface) Size() (int, int) {
	return s.fb.Rect.Dx(), s.fb.Rect.Dy()
}

type device struct {
	d          *Driver
	terminated bool
	contexts   map[*context]struct{}
	surfaces   map[*surface]struct{}
	current    *context
}

var errTerminated = errors.New("device terminated")

func (dv *device) ChooseConfig(attrs gles.ConfigAttribs) (gles.Config, error) {
	if dv.terminated {
		return nil, errTerminated
	}
	if dv.d.currentFaults().ChooseConfig {
		return nil, errors.New("no matching config")
	}
	if attrs.RedSize > rgba8888.RedSize || attrs.GreenSize > rgba8888.GreenSize || attrs.BlueSize > rgba8888.BlueSize {
		return nil, errors.New("no matching config")
	}
	if attrs.RenderableType&^rgba8888.RenderableType != 0 {
		return nil, errors.New("no matching config")
	}
	return &config{attrs: rgba8888}, nil
}

func (dv *device) CreateContext(cfg gles.Config, clientVersion int) (gles.Context, error) {
	if dv.terminated {
		return nil, errTerminated
	}
	if _, ok := cfg.(*config); !ok {
		return nil, errors.New("bad config")
	}
	if clientVersion != 2 {
		return nil, fmt.Errorf("unsupported client version %d", clientVersion)
	}
	if dv.d.currentFaults().CreateContext {
		return nil, errors.New("bad alloc")
	}
	c := newContext(dv)
	dv.contexts[c] = struct{}{}
	dv.d.track(func(l *Live) { l.Contexts++ })
	return c, nil
}

func (dv *device) CreateWindowSurface(cfg gles.Config, win gles.NativeWindow) (gles.Surface, error) {
	if dv.terminated {
		return nil, errTerminated
	}
	if _, ok := cfg.(*config); !ok {
		return nil, errors.New("bad config")
	}
	if win == nil {
		return nil, errors.New("bad native window")
	}
	if dv.d.currentFaults().CreateSurface {
		return nil, errors.New("bad alloc")
	}
	w, h := win.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("bad native window size %dx%d", w, h)
	}
	// The surface holds its own window reference until destroyed.
	win.Acquire()
	s := &surface{win: win, fb: image.NewRGBA(image.Rect(0, 0, w, h))}
	dv.surfaces[s] = struct{}{}
	dv.d.track(func(l *Live) { l.Surfaces++ })
	return s, nil
}

func (dv *device) MakeCurrent(gs gles.Surface, gc gles.Context) error {
	if dv.terminated {
		return errTerminated
	}
	s, ok := gs.(*surface)
	if !ok {
		return errors.New("bad surface")
	}
	if _, live := dv.surfaces[s]; !live {
		return errors.New("bad surface")
	}
	c, ok := gc.(*context)
	if !ok {
		return errors.New("bad context")
	}
	if _, live := dv.contexts[c]; !live {
		return errors.New("bad context")
	}
	if dv.current != nil {
		dv.current.surface = nil
	}
	c.surface = s
	dv.current = c
	return nil
}

func (dv *device) ReleaseCurrent() error {
	if dv.current != nil {
		dv.current.surface = nil
		dv.current = nil
	}
	return nil
}

func (dv *device) SwapBuffers(gs gles.Surface) error {
	s, ok := gs.(*surface)
	if !ok {
		return errors.New("bad surface")
	}
	if _, live := dv.surfaces[s]; !live {
		return errors.New("bad surface")
	}
	if dv.current == nil || dv.current.surface != s {
		return errors.New("surface is not current")
	}
	if p, ok := s.win.(gles.Presenter); ok {
		p.Present(s.fb)
	}
	return nil
}

func (dv *device) DestroySurface(gs gles.Surface) error {
	s, ok := gs.(*surface)
	if !ok {
		return errors.New("bad surface")
	}
	if _, live := dv.surfaces[s]; !live {
		return errors.New("bad surface")
	}
	if dv.current != nil && dv.current.surface == s {
		return errors.New("surface is current")
	}
	delete(dv.surfaces, s)
	s.win.Release()
	dv.d.track(func(l *Live) { l.Surfaces-- })
	return nil
}

func (dv *device) DestroyContext(gc gles.Context) error {
	c, ok := gc.(*context)
	if !ok {
		return errors.New("bad context")
	}
	if _, live := dv.contexts[c]; !live {
		return errors.New("bad context")
	}
	if dv.current == c {
		return errors.New("context is current")
	}
	delete(dv.contexts, c)
	dv.d.track(func(l *Live) { l.Contexts-- })
	return nil
}

func (dv *device) Terminate() error {
	if dv.terminated {
		return errTerminated
	}
	dv.terminated = true
	dv.current = nil
	dv.d.track(func(l *Live) { l.Devices-- })
	return nil
}
