// Package gles describes the graphics device boundary used by the renderer:
// an EGL-style display/context/surface API and the subset of OpenGL ES 2.0
// needed to composite one external texture onto a window.
package gles

import (
	"encoding/binary"
	"image"
	"math"
)

type (
	Enum    uint32
	Shader  uint32
	Program uint32
	Buffer  uint32
	Texture uint32

	// Attrib and Uniform are -1 when the name is not active in the program.
	Attrib  int
	Uniform int
)

const (
	NO_ERROR          Enum = 0
	INVALID_ENUM      Enum = 0x0500
	INVALID_VALUE     Enum = 0x0501
	INVALID_OPERATION Enum = 0x0502

	FRAGMENT_SHADER Enum = 0x8B30
	VERTEX_SHADER   Enum = 0x8B31
	COMPILE_STATUS  Enum = 0x8B81
	LINK_STATUS     Enum = 0x8B82

	ARRAY_BUFFER Enum = 0x8892
	STATIC_DRAW  Enum = 0x88E4
	FLOAT        Enum = 0x1406

	TEXTURE0             Enum = 0x84C0
	TEXTURE_2D           Enum = 0x0DE1
	TEXTURE_EXTERNAL_OES Enum = 0x8D65

	TRIANGLES        Enum = 0x0004
	TRIANGLE_STRIP   Enum = 0x0005
	COLOR_BUFFER_BIT Enum = 0x4000
)

// Renderable API bits for ConfigAttribs.RenderableType.
const (
	OpenGLES2Bit = 0x0004
)

// ConfigAttribs is the minimum a framebuffer configuration must satisfy.
type ConfigAttribs struct {
	RedSize        int
	GreenSize      int
	BlueSize       int
	RenderableType int
}

// Driver opens graphics devices. It is the eglGetDisplay/eglInitialize pair.
type Driver interface {
	Open() (Device, error)
}

// Device is an initialized display connection. All methods must be called
// from the goroutine that will make the context current, with that goroutine
// locked to its OS thread.
type Device interface {
	ChooseConfig(attrs ConfigAttribs) (Config, error)
	CreateContext(cfg Config, clientVersion int) (Context, error)
	CreateWindowSurface(cfg Config, win NativeWindow) (Surface, error)
	MakeCurrent(s Surface, c Context) error
	ReleaseCurrent() error
	SwapBuffers(s Surface) error
	DestroySurface(s Surface) error
	DestroyContext(c Context) error
	Terminate() error
}

// Config is an opaque framebuffer configuration.
type Config interface {
	Attribs() ConfigAttribs
}

// Context is a rendering context. Functions returns the GL entry points that
// operate on it; they are only valid while the context is current.
type Context interface {
	Functions() Functions
}

// Surface is a window-bound drawable.
type Surface interface {
	Size() (width, height int)
}

// NativeWindow is a reference-counted platform window handle. The holder of a
// reference calls Release exactly once when done with it.
type NativeWindow interface {
	Size() (width, height int)
	Acquire()
	Release()
}

// Presenter is implemented by windows that receive the swapped back buffer.
// The image is only valid for the duration of the call.
type Presenter interface {
	Present(frame *image.RGBA)
}

// ExternalImageTarget binds producer images to external texture names.
type ExternalImageTarget interface {
	SetExternalImage(tex Texture, img image.Image) error
}

// Functions is the OpenGL ES 2.0 subset used by the renderer.
type Functions interface {
	CreateShader(ty Enum) Shader
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	GetShaderi(s Shader, pname Enum) int
	GetShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	GetProgrami(p Program, pname Enum) int
	GetProgramInfoLog(p Program) string
	UseProgram(p Program)
	DeleteProgram(p Program)
	GetAttribLocation(p Program, name string) Attrib
	GetUniformLocation(p Program, name string) Uniform

	CreateBuffer() Buffer
	BindBuffer(target Enum, b Buffer)
	BufferData(target Enum, data []byte, usage Enum)
	DeleteBuffer(b Buffer)

	ActiveTexture(unit Enum)
	BindTexture(target Enum, t Texture)
	Uniform1i(u Uniform, v int)

	EnableVertexAttribArray(a Attrib)
	DisableVertexAttribArray(a Attrib)
	VertexAttribPointer(a Attrib, size int, ty Enum, normalized bool, stride, offset int)
	DrawArrays(mode Enum, first, count int)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask Enum)
	GetError() Enum
}

// Float32Bytes encodes v in the little-endian layout BufferData expects.
func Float32Bytes(v ...float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}
