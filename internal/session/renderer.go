package session

import (
	"github.com/junsooki/airview/internal/gles"
	"github.com/junsooki/airview/internal/logging"
	"github.com/junsooki/airview/internal/pipeline"
)

var configAttribs = gles.ConfigAttribs{
	RedSize:        8,
	GreenSize:      8,
	BlueSize:       8,
	RenderableType: gles.OpenGLES2Bit,
}

// renderer is the graphics state of one run. It is owned by the render
// goroutine from setup to teardown.
type renderer struct {
	dev      gles.Device
	ctx      gles.Context
	surface  gles.Surface
	current  bool
	gl       gles.Functions
	pipeline *pipeline.Pipeline
}

// setup opens the device and binds a current ES2 context to win. On error
// everything acquired so far has been released.
func setup(drv gles.Driver, win gles.NativeWindow) (*renderer, error) {
	dev, err := drv.Open()
	if err != nil {
		return nil, &DeviceError{Err: err}
	}
	r := &renderer{dev: dev}
	fail := func(err error) (*renderer, error) {
		r.teardown()
		return nil, err
	}

	cfg, err := dev.ChooseConfig(configAttribs)
	if err != nil {
		return fail(&ConfigError{Err: err})
	}
	if r.ctx, err = dev.CreateContext(cfg, 2); err != nil {
		return fail(&ContextCreationError{Op: "create context", Err: err})
	}
	if r.surface, err = dev.CreateWindowSurface(cfg, win); err != nil {
		return fail(&SurfaceCreationError{Err: err})
	}
	if err := dev.MakeCurrent(r.surface, r.ctx); err != nil {
		return fail(&ContextCreationError{Op: "make current", Err: err})
	}
	r.current = true
	r.gl = r.ctx.Functions()

	if r.pipeline, err = pipeline.Build(r.gl); err != nil {
		return fail(err)
	}
	r.pipeline.Viewport(win.Size())
	r.gl.ClearColor(0, 0, 0, 1)
	return r, nil
}

// teardown releases the pipeline, the context, the surface and the device,
// in that order. Errors are logged and otherwise ignored.
func (r *renderer) teardown() {
	log := logging.Logger()
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}
	if r.current {
		if err := r.dev.ReleaseCurrent(); err != nil {
			log.Warn("release current context", "err", err)
		}
		r.current = false
	}
	if r.ctx != nil {
		if err := r.dev.DestroyContext(r.ctx); err != nil {
			log.Warn("destroy context", "err", err)
		}
		r.ctx = nil
	}
	if r.surface != nil {
		if err := r.dev.DestroySurface(r.surface); err != nil {
			log.Warn("destroy surface", "err", err)
		}
		r.surface = nil
	}
	if err := r.dev.Terminate(); err != nil {
		log.Warn("terminate device", "err", err)
	}
}

// frame draws tex and presents it. It reports whether the swap succeeded.
func (r *renderer) frame(tex gles.Texture) bool {
	r.gl.Clear(gles.COLOR_BUFFER_BIT)
	r.pipeline.BindFrame(tex)
	return r.dev.SwapBuffers(r.surface) == nil
}
