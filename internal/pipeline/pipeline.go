// Package pipeline draws one external texture as a full-width quad.
package pipeline

import (
	"github.com/junsooki/airview/internal/gles"
	"github.com/junsooki/airview/internal/logging"
)

const vertexShaderSrc = `
attribute vec4 aPosition;
attribute vec2 aTexCoord;
varying vec2 vTexCoord;
void main() {
    gl_Position = aPosition;
    vTexCoord = aTexCoord;
}
`

const fragmentShaderSrc = `
#extension GL_OES_EGL_image_external : require
precision mediump float;
uniform samplerExternalOES uTexture;
varying vec2 vTexCoord;
void main() {
    gl_FragColor = texture2D(uTexture, vTexCoord);
}
`

// quadHalfHeight is the vertical extent of a 16:9 frame on a square NDC
// viewport. The quad ignores the real surface aspect ratio.
const quadHalfHeight = 0.5625

// Triangle strip, {x, y, s, t} per vertex.
var quad = []float32{
	-1, -quadHalfHeight, 0, 1,
	1, -quadHalfHeight, 1, 1,
	-1, quadHalfHeight, 0, 0,
	1, quadHalfHeight, 1, 0,
}

const (
	floatsPerVertex = 4
	vertexStride    = floatsPerVertex * 4
	vertexCount     = 4
)

// Pipeline holds the shader program and quad geometry of one GL context.
type Pipeline struct {
	gl      gles.Functions
	program gles.Program
	vbo     gles.Buffer

	aPosition gles.Attrib
	aTexCoord gles.Attrib
	uTexture  gles.Uniform
}

// Build compiles and links the program and uploads the quad. The context
// behind gl must be current. On failure every object created so far is
// deleted and the error is a *ShaderCompileError or *ProgramLinkError.
func Build(gl gles.Functions) (*Pipeline, error) {
	log := logging.Logger()

	vs, err := compile(gl, gles.VERTEX_SHADER, vertexShaderSrc)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vs)
	fs, err := compile(gl, gles.FRAGMENT_SHADER, fragmentShaderSrc)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fs)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)
	if gl.GetProgrami(prog, gles.LINK_STATUS) == 0 {
		err := &ProgramLinkError{Log: truncate(gl.GetProgramInfoLog(prog))}
		gl.DeleteProgram(prog)
		log.Warn("program link failed", "log", err.Log)
		return nil, err
	}

	p := &Pipeline{
		gl:        gl,
		program:   prog,
		aPosition: gl.GetAttribLocation(prog, "aPosition"),
		aTexCoord: gl.GetAttribLocation(prog, "aTexCoord"),
		uTexture:  gl.GetUniformLocation(prog, "uTexture"),
	}

	p.vbo = gl.CreateBuffer()
	gl.BindBuffer(gles.ARRAY_BUFFER, p.vbo)
	gl.BufferData(gles.ARRAY_BUFFER, gles.Float32Bytes(quad...), gles.STATIC_DRAW)
	gl.BindBuffer(gles.ARRAY_BUFFER, 0)

	log.Debug("pipeline built",
		"program", prog,
		"aPosition", p.aPosition,
		"aTexCoord", p.aTexCoord,
		"uTexture", p.uTexture)
	return p, nil
}

func compile(gl gles.Functions, stage gles.Enum, src string) (gles.Shader, error) {
	s := gl.CreateShader(stage)
	gl.ShaderSource(s, src)
	gl.CompileShader(s)
	if gl.GetShaderi(s, gles.COMPILE_STATUS) == 0 {
		err := &ShaderCompileError{Stage: stage, Log: truncate(gl.GetShaderInfoLog(s))}
		gl.DeleteShader(s)
		logging.Logger().Warn("shader compile failed", "stage", stageName(stage), "log", err.Log)
		return 0, err
	}
	return s, nil
}

// Viewport covers the whole surface.
func (p *Pipeline) Viewport(width, height int) {
	p.gl.Viewport(0, 0, width, height)
}

// BindFrame samples tex from texture unit 0 and draws the quad.
func (p *Pipeline) BindFrame(tex gles.Texture) {
	gl := p.gl
	gl.UseProgram(p.program)
	gl.ActiveTexture(gles.TEXTURE0)
	gl.BindTexture(gles.TEXTURE_EXTERNAL_OES, tex)
	gl.Uniform1i(p.uTexture, 0)

	gl.BindBuffer(gles.ARRAY_BUFFER, p.vbo)
	gl.EnableVertexAttribArray(p.aPosition)
	gl.EnableVertexAttribArray(p.aTexCoord)
	gl.VertexAttribPointer(p.aPosition, 2, gles.FLOAT, false, vertexStride, 0)
	gl.VertexAttribPointer(p.aTexCoord, 2, gles.FLOAT, false, vertexStride, 2*4)
	gl.DrawArrays(gles.TRIANGLE_STRIP, 0, vertexCount)
}

// Release deletes the program and vertex buffer. The context must still be
// current.
func (p *Pipeline) Release() {
	p.gl.DeleteBuffer(p.vbo)
	p.gl.DeleteProgram(p.program)
	p.vbo, p.program = 0, 0
}
