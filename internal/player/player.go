// Package player ties a window's surface lifecycle to a render session.
//
// When the window's surface appears the player allocates an external
// texture, hands it to the frame producer and starts rendering it; when the
// surface goes away it stops the session and frees the texture.
package player

import (
	"sync"
	"sync/atomic"

	"github.com/junsooki/airview/internal/gles"
	"github.com/junsooki/airview/internal/logging"
	"github.com/junsooki/airview/internal/session"
	"github.com/junsooki/airview/internal/surfacetex"
)

// TextureAllocator hands out external texture names and their storage.
type TextureAllocator interface {
	gles.ExternalImageTarget
	GenTexture() gles.Texture
	DeleteTexture(t gles.Texture)
}

// Player owns one render session and the texture it draws.
type Player struct {
	textures  TextureAllocator
	session   *session.Session
	onTexture func(*surfacetex.Texture)

	// current is read by the render goroutine while attaching.
	current atomic.Pointer[surfacetex.Texture]

	mu  sync.Mutex
	tex *surfacetex.Texture
}

// New creates a player rendering through drv. onTexture, if set, is called
// with each new texture when a surface is created and with nil when it is
// destroyed; the producer pushes frames into it.
func New(drv gles.Driver, textures TextureAllocator, opts session.Options, onTexture func(*surfacetex.Texture)) *Player {
	p := &Player{textures: textures, onTexture: onTexture}
	env := opts.Env
	opts.Env = session.AttacherFunc(func() (func(), error) {
		return p.attach(env)
	})
	p.session = session.New(drv, opts)
	return p
}

// attach registers the render goroutine as the consumer of the current
// texture, after any caller-supplied environment.
func (p *Player) attach(env session.Attacher) (func(), error) {
	detachEnv := func() {}
	if env != nil {
		d, err := env.Attach()
		if err != nil {
			return nil, err
		}
		detachEnv = d
	}
	tex := p.current.Load()
	if tex == nil {
		return detachEnv, nil
	}
	detachTex, err := tex.Attach()
	if err != nil {
		detachEnv()
		return nil, err
	}
	return func() {
		detachTex()
		detachEnv()
	}, nil
}

// Session returns the underlying render session.
func (p *Player) Session() *session.Session {
	return p.session
}

// Texture returns the texture being rendered, or nil.
func (p *Player) Texture() *surfacetex.Texture {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tex
}

// SurfaceCreated starts rendering to win, taking over the caller's
// reference to it. A second call without SurfaceDestroyed in between
// releases win and changes nothing.
func (p *Player) SurfaceCreated(win gles.NativeWindow) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := logging.Logger()
	if p.tex != nil {
		log.Info("surface already bound, ignoring new surface")
		win.Release()
		return
	}

	name := p.textures.GenTexture()
	tex := surfacetex.New(p.textures, name)
	p.current.Store(tex)
	if !p.session.Start(win, name, tex.UpdateTexImage) {
		p.current.Store(nil)
		p.textures.DeleteTexture(name)
		win.Release()
		return
	}
	p.tex = tex
	if p.onTexture != nil {
		p.onTexture(tex)
	}
	log.Info("surface created", "texture", name)
}

// SurfaceDestroyed stops rendering and frees the texture. It returns once
// the window is no longer referenced.
func (p *Player) SurfaceDestroyed() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session.Stop()
	if p.tex == nil {
		return
	}
	if p.onTexture != nil {
		p.onTexture(nil)
	}
	p.tex.Release()
	p.textures.DeleteTexture(p.tex.Name())
	logging.Logger().Info("surface destroyed", "texture", p.tex.Name())
	p.tex = nil
	p.current.Store(nil)
}
