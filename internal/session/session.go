// Package session runs the render loop that composites an external texture
// onto a native window.
//
// A Session owns at most one render goroutine at a time. Start hands the
// window to the session and returns at once; the goroutine locks its OS
// thread, brings up the graphics context, then refreshes, draws and
// presents the texture at a fixed pacing until Stop. The goroutine releases
// the window after every graphics resource, and Stop blocks until it has.
// Called from the refresh callback, Stop cannot wait for its own goroutine:
// it ends the run after the current iteration and returns at once.
//
// Neither the refresh callback nor any GPU call is bounded by a timeout. A
// callback that blocks delays Stop by as long as it blocks.
package session

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/junsooki/airview/internal/gles"
	"github.com/junsooki/airview/internal/logging"
)

// DefaultPacing is the per-frame sleep, roughly 60 Hz.
const DefaultPacing = 16 * time.Millisecond

// State is the lifecycle state of a Session.
type State int32

const (
	Stopped State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Attacher binds the render goroutine's OS thread to whatever runtime the
// refresh callback needs. The returned detach func is called exactly once,
// on the same goroutine, after the loop exits or setup aborts.
type Attacher interface {
	Attach() (detach func(), err error)
}

// AttacherFunc adapts a function to Attacher.
type AttacherFunc func() (func(), error)

func (f AttacherFunc) Attach() (func(), error) { return f() }

type nopAttacher struct{}

func (nopAttacher) Attach() (func(), error) { return func() {}, nil }

// Options configure a Session. The zero value is usable.
type Options struct {
	// Pacing is the sleep after each presented frame. Zero means DefaultPacing.
	Pacing time.Duration
	// Env brackets every run. Nil means no attachment is needed.
	Env Attacher
}

// Stats counts frames of the current or most recent run.
type Stats struct {
	Frames        uint64
	DroppedFrames uint64
}

// Session renders one external texture to one window at a time.
type Session struct {
	driver gles.Driver
	pacing time.Duration
	env    Attacher

	// mu serialises Start and Stop. The render loop never takes it.
	mu   sync.Mutex
	done chan struct{}

	// renderG is the goroutine id of the live render goroutine, or zero.
	renderG atomic.Uint64
	state   atomic.Int32
	running atomic.Bool
	failure atomic.Pointer[error]
	frames  atomic.Uint64
	dropped atomic.Uint64
}

// New returns a stopped session that renders through drv.
func New(drv gles.Driver, opts Options) *Session {
	s := &Session{
		driver: drv,
		pacing: opts.Pacing,
		env:    opts.Env,
	}
	if s.pacing <= 0 {
		s.pacing = DefaultPacing
	}
	if s.env == nil {
		s.env = nopAttacher{}
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Err returns the error that aborted the most recent start, or nil.
func (s *Session) Err() error {
	if p := s.failure.Load(); p != nil {
		return *p
	}
	return nil
}

// Stats returns frame counters for the current or most recent run.
func (s *Session) Stats() Stats {
	return Stats{Frames: s.frames.Load(), DroppedFrames: s.dropped.Load()}
}

// Start launches a render run that draws tex to win, calling refresh before
// every frame. It does not wait for the graphics context to come up.
//
// If a run is already starting or running, Start does nothing and returns
// false: the running session keeps its original window, texture and
// callback, and win remains owned by the caller. A nil win and a call from
// the render goroutine itself are refused the same way. Otherwise the
// session takes over the caller's reference to win and releases it when the
// run ends.
func (s *Session) Start(win gles.NativeWindow, tex gles.Texture, refresh func()) bool {
	log := logging.Logger()
	if win == nil {
		log.Warn("render session not started: nil window", "texture", tex)
		return false
	}
	if s.onRenderGoroutine() {
		log.Warn("render session cannot be restarted from its own goroutine", "texture", tex)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st == Starting || st == Running {
		log.Info("render session already running", "state", st, "texture", tex)
		return false
	}

	// A previous run may still be unwinding after a failed start or a stop
	// requested from its own callback.
	s.join()

	if refresh == nil {
		refresh = func() {}
	}
	s.failure.Store(nil)
	s.frames.Store(0)
	s.dropped.Store(0)
	s.running.Store(true)
	s.state.Store(int32(Starting))
	s.done = make(chan struct{})

	w, h := win.Size()
	log.Info("render session starting", "texture", tex, "width", w, "height", h, "pacing", s.pacing)
	go s.run(win, tex, refresh, s.done)
	return true
}

// Stop ends the current run and waits for the render goroutine to exit.
// When it returns, no graphics resource or window reference is held. Stop is
// safe to call from any goroutine and at any time.
//
// From the render goroutine (the refresh callback or the Attacher) Stop only
// requests the end of the run; the goroutine finishes the current iteration,
// releases everything and leaves the session Stopped.
func (s *Session) Stop() {
	if s.onRenderGoroutine() {
		s.requestStop()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return
	}
	s.requestStop()
	if s.join() {
		logging.Logger().Info("render goroutine joined")
	}
}

func (s *Session) requestStop() {
	if s.state.CompareAndSwap(int32(Running), int32(Stopping)) ||
		s.state.CompareAndSwap(int32(Starting), int32(Stopping)) {
		logging.Logger().Info("render session stopping")
	}
	s.running.Store(false)
}

func (s *Session) onRenderGoroutine() bool {
	g := s.renderG.Load()
	return g != 0 && g == goid()
}

// join waits for the last render goroutine, if any. s.mu must be held.
func (s *Session) join() bool {
	if s.done == nil {
		return false
	}
	<-s.done
	s.done = nil
	return true
}

// abort records a failed start.
func (s *Session) abort(err error) {
	s.failure.Store(&err)
	s.running.Store(false)
	logging.Logger().Warn("render session start failed", "err", err)
}

func (s *Session) run(win gles.NativeWindow, tex gles.Texture, refresh func(), done chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	s.renderG.Store(goid())

	// The outcome of the run becomes visible only after everything,
	// including the thread attachment and the window, has been released.
	var startErr error
	defer func() {
		s.renderG.Store(0)
		win.Release()
		logging.Logger().Debug("window released")
		if startErr != nil {
			s.abort(startErr)
		}
		s.state.Store(int32(Stopped))
		close(done)
	}()

	log := logging.Logger()
	detach, err := s.env.Attach()
	if err != nil {
		startErr = fmt.Errorf("attach render thread: %w", err)
		return
	}
	log.Debug("render thread attached")
	defer func() {
		detach()
		log.Debug("render thread detached")
	}()

	r, err := setup(s.driver, win)
	if err != nil {
		startErr = err
		return
	}
	defer r.teardown()

	if !s.state.CompareAndSwap(int32(Starting), int32(Running)) {
		// Stop arrived during setup.
		return
	}
	log.Info("render session running", "texture", tex)

	for s.running.Load() {
		refresh()
		if !s.running.Load() {
			break
		}
		if r.frame(tex) {
			s.frames.Add(1)
		} else {
			s.dropped.Add(1)
		}
		time.Sleep(s.pacing)
	}
	log.Info("render loop exited cleanly", "frames", s.frames.Load(), "dropped", s.dropped.Load())
}
