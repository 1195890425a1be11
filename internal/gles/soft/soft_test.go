package soft_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/airview/internal/gles"
	"github.com/junsooki/airview/internal/gles/glestest"
	"github.com/junsooki/airview/internal/gles/soft"
)

var attrs = gles.ConfigAttribs{RedSize: 8, GreenSize: 8, BlueSize: 8, RenderableType: gles.OpenGLES2Bit}

const vsSrc = `
attribute vec4 aPosition;
attribute vec2 aTexCoord;
varying vec2 vTexCoord;
void main() {
    gl_Position = aPosition;
    vTexCoord = aTexCoord;
}
`

const fsSrc = `
#extension GL_OES_EGL_image_external : require
precision mediump float;
uniform samplerExternalOES uTexture;
varying vec2 vTexCoord;
void main() {
    gl_FragColor = texture2D(uTexture, vTexCoord);
}
`

type fixture struct {
	dev gles.Device
	ctx gles.Context
	sf  gles.Surface
	gl  gles.Functions
}

func current(t *testing.T, drv *soft.Driver, win gles.NativeWindow) *fixture {
	t.Helper()
	dev, err := drv.Open()
	require.NoError(t, err)
	cfg, err := dev.ChooseConfig(attrs)
	require.NoError(t, err)
	ctx, err := dev.CreateContext(cfg, 2)
	require.NoError(t, err)
	sf, err := dev.CreateWindowSurface(cfg, win)
	require.NoError(t, err)
	require.NoError(t, dev.MakeCurrent(sf, ctx))
	return &fixture{dev: dev, ctx: ctx, sf: sf, gl: ctx.Functions()}
}

func (f *fixture) close(t *testing.T) {
	t.Helper()
	require.NoError(t, f.dev.ReleaseCurrent())
	require.NoError(t, f.dev.DestroyContext(f.ctx))
	require.NoError(t, f.dev.DestroySurface(f.sf))
	require.NoError(t, f.dev.Terminate())
}

func compile(gl gles.Functions, ty gles.Enum, src string) (gles.Shader, bool) {
	s := gl.CreateShader(ty)
	gl.ShaderSource(s, src)
	gl.CompileShader(s)
	return s, gl.GetShaderi(s, gles.COMPILE_STATUS) == 1
}

func TestDeviceLifecycleTracksObjects(t *testing.T) {
	drv := soft.New()
	win := glestest.NewWindow(32, 32)

	f := current(t, drv, win)
	assert.Equal(t, soft.Live{Devices: 1, Contexts: 1, Surfaces: 1}, drv.Live())
	assert.Equal(t, 2, win.Refs(), "surface holds its own window reference")

	assert.Error(t, f.dev.DestroyContext(f.ctx), "current context cannot be destroyed")
	assert.Error(t, f.dev.DestroySurface(f.sf), "current surface cannot be destroyed")

	f.close(t)
	assert.True(t, drv.Live().Zero())
	assert.Equal(t, 1, win.Refs())
}

func TestTerminateDoesNotReclaim(t *testing.T) {
	drv := soft.New()
	win := glestest.NewWindow(8, 8)
	f := current(t, drv, win)
	require.NoError(t, f.dev.Terminate())

	assert.Equal(t, soft.Live{Contexts: 1, Surfaces: 1}, drv.Live())
	assert.Error(t, f.dev.Terminate())
}

func TestChooseConfig(t *testing.T) {
	drv := soft.New()
	dev, err := drv.Open()
	require.NoError(t, err)
	defer dev.Terminate()

	_, err = dev.ChooseConfig(gles.ConfigAttribs{RedSize: 10})
	assert.Error(t, err)

	drv.SetFaults(soft.Faults{ChooseConfig: true})
	_, err = dev.ChooseConfig(attrs)
	assert.Error(t, err)

	drv.SetFaults(soft.Faults{})
	cfg, err := dev.ChooseConfig(attrs)
	require.NoError(t, err)
	_, err = dev.CreateContext(cfg, 3)
	assert.Error(t, err, "only ES2 contexts exist")
}

func TestCompileDiagnostics(t *testing.T) {
	drv := soft.New()
	f := current(t, drv, glestest.NewWindow(8, 8))
	defer f.close(t)
	gl := f.gl

	tests := []struct {
		name string
		ty   gles.Enum
		src  string
		want string
	}{
		{"empty", gles.VERTEX_SHADER, "  ", "empty source"},
		{"no main", gles.VERTEX_SHADER, "attribute vec4 a;\n", "'main' : function not defined"},
		{"unbalanced", gles.VERTEX_SHADER, "void main() {\n", "unexpected end of file"},
		{
			"external sampler without extension", gles.FRAGMENT_SHADER,
			"precision mediump float;\nuniform samplerExternalOES t;\nvoid main() {}\n",
			"requires extension GL_OES_EGL_image_external",
		},
		{
			"missing precision", gles.FRAGMENT_SHADER,
			"varying vec2 v;\nvoid main() {}\n",
			"No precision specified",
		},
		{
			"attribute in fragment", gles.FRAGMENT_SHADER,
			"precision mediump float;\nattribute vec2 a;\nvoid main() {}\n",
			"supported in vertex shaders only",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := compile(gl, tt.ty, tt.src)
			defer gl.DeleteShader(s)
			assert.False(t, ok)
			assert.Contains(t, gl.GetShaderInfoLog(s), tt.want)
		})
	}

	s, ok := compile(gl, gles.FRAGMENT_SHADER, fsSrc)
	defer gl.DeleteShader(s)
	assert.True(t, ok)
	assert.Empty(t, gl.GetShaderInfoLog(s))
	assert.Equal(t, gles.NO_ERROR, gl.GetError())
}

func TestCompileFault(t *testing.T) {
	drv := soft.New()
	f := current(t, drv, glestest.NewWindow(8, 8))
	defer f.close(t)

	drv.SetFaults(soft.Faults{CompileStage: gles.FRAGMENT_SHADER})
	vs, ok := compile(f.gl, gles.VERTEX_SHADER, vsSrc)
	assert.True(t, ok)
	fs, ok := compile(f.gl, gles.FRAGMENT_SHADER, fsSrc)
	assert.False(t, ok)
	assert.Contains(t, f.gl.GetShaderInfoLog(fs), "fragment compilation rejected")

	f.gl.DeleteShader(vs)
	f.gl.DeleteShader(fs)
	assert.Zero(t, drv.Live().Shaders)
}

func TestLinkVaryingMismatch(t *testing.T) {
	drv := soft.New()
	f := current(t, drv, glestest.NewWindow(8, 8))
	defer f.close(t)
	gl := f.gl

	vs, ok := compile(gl, gles.VERTEX_SHADER, "attribute vec4 a;\nvoid main() {\n gl_Position = a;\n}\n")
	require.True(t, ok)
	fs, ok := compile(gl, gles.FRAGMENT_SHADER, fsSrc)
	require.True(t, ok)

	p := gl.CreateProgram()
	gl.AttachShader(p, vs)
	gl.AttachShader(p, fs)
	gl.LinkProgram(p)
	assert.Equal(t, 0, gl.GetProgrami(p, gles.LINK_STATUS))
	assert.Contains(t, gl.GetProgramInfoLog(p), "Varying vTexCoord")

	gl.UseProgram(p)
	assert.Equal(t, gles.INVALID_OPERATION, gl.GetError())

	gl.DeleteProgram(p)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	assert.Equal(t, soft.Live{Devices: 1, Contexts: 1, Surfaces: 1}, drv.Live())
}

func TestCallsWithoutCurrentContext(t *testing.T) {
	drv := soft.New()
	f := current(t, drv, glestest.NewWindow(8, 8))
	require.NoError(t, f.dev.ReleaseCurrent())

	assert.Zero(t, f.gl.CreateProgram())
	assert.Equal(t, gles.INVALID_OPERATION, f.gl.GetError())
	assert.Equal(t, gles.NO_ERROR, f.gl.GetError(), "GetError resets the flag")
	assert.Error(t, f.dev.SwapBuffers(f.sf))

	require.NoError(t, f.dev.DestroyContext(f.ctx))
	require.NoError(t, f.dev.DestroySurface(f.sf))
	require.NoError(t, f.dev.Terminate())
	assert.True(t, drv.Live().Zero())
}

func TestDrawTexturedQuad(t *testing.T) {
	drv := soft.New()
	win := glestest.NewWindow(64, 64)
	f := current(t, drv, win)
	defer f.close(t)
	gl := f.gl

	green := color.RGBA{0, 0xFF, 0, 0xFF}
	blue := color.RGBA{0, 0, 0xFF, 0xFF}
	black := color.RGBA{0, 0, 0, 0xFF}

	tex := drv.GenTexture()
	defer drv.DeleteTexture(tex)
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := green
			if y >= 2 {
				c = blue
			}
			src.SetRGBA(x, y, c)
		}
	}
	require.NoError(t, drv.SetExternalImage(tex, src))

	vs, ok := compile(gl, gles.VERTEX_SHADER, vsSrc)
	require.True(t, ok)
	fs, ok := compile(gl, gles.FRAGMENT_SHADER, fsSrc)
	require.True(t, ok)
	p := gl.CreateProgram()
	gl.AttachShader(p, vs)
	gl.AttachShader(p, fs)
	gl.LinkProgram(p)
	require.Equal(t, 1, gl.GetProgrami(p, gles.LINK_STATUS), gl.GetProgramInfoLog(p))
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	defer gl.DeleteProgram(p)

	aPos := gl.GetAttribLocation(p, "aPosition")
	aTex := gl.GetAttribLocation(p, "aTexCoord")
	uTex := gl.GetUniformLocation(p, "uTexture")
	require.NotEqual(t, gles.Attrib(-1), aPos)
	require.NotEqual(t, gles.Attrib(-1), aTex)
	require.NotEqual(t, gles.Uniform(-1), uTex)

	vbo := gl.CreateBuffer()
	defer gl.DeleteBuffer(vbo)
	gl.BindBuffer(gles.ARRAY_BUFFER, vbo)
	gl.BufferData(gles.ARRAY_BUFFER, gles.Float32Bytes(
		-1, -0.5, 0, 1,
		1, -0.5, 1, 1,
		-1, 0.5, 0, 0,
		1, 0.5, 1, 0,
	), gles.STATIC_DRAW)

	gl.Viewport(0, 0, 64, 64)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gles.COLOR_BUFFER_BIT)
	gl.UseProgram(p)
	gl.ActiveTexture(gles.TEXTURE0)
	gl.BindTexture(gles.TEXTURE_EXTERNAL_OES, tex)
	gl.Uniform1i(uTex, 0)
	gl.EnableVertexAttribArray(aPos)
	gl.EnableVertexAttribArray(aTex)
	gl.VertexAttribPointer(aPos, 2, gles.FLOAT, false, 16, 0)
	gl.VertexAttribPointer(aTex, 2, gles.FLOAT, false, 16, 8)
	gl.DrawArrays(gles.TRIANGLE_STRIP, 0, 4)
	require.Equal(t, gles.NO_ERROR, gl.GetError())
	require.NoError(t, f.dev.SwapBuffers(f.sf))

	fb := win.Last()
	require.NotNil(t, fb)
	// The quad spans rows 16 to 48; the top of the texture lands on top.
	assert.Equal(t, black, fb.RGBAAt(32, 4))
	assert.Equal(t, green, fb.RGBAAt(32, 20))
	assert.Equal(t, blue, fb.RGBAAt(32, 44))
	assert.Equal(t, black, fb.RGBAAt(32, 60))
}

func TestDrawWrongTargetIsSkipped(t *testing.T) {
	drv := soft.New()
	win := glestest.NewWindow(16, 16)
	f := current(t, drv, win)
	defer f.close(t)

	gl := f.gl
	gl.ClearColor(1, 0, 0, 1)
	gl.Clear(gles.COLOR_BUFFER_BIT)
	gl.DrawArrays(gles.TRIANGLES, 0, 3)
	assert.Equal(t, gles.INVALID_ENUM, gl.GetError())
	require.NoError(t, f.dev.SwapBuffers(f.sf))
	assert.Equal(t, color.RGBA{0xFF, 0, 0, 0xFF}, win.Last().RGBAAt(8, 8))
}

func TestTextureNames(t *testing.T) {
	drv := soft.New()
	require.NoError(t, drv.NewTexture(7))
	assert.Error(t, drv.NewTexture(7))
	assert.Error(t, drv.NewTexture(0))

	for i := 0; i < 10; i++ {
		assert.NotEqual(t, gles.Texture(7), drv.GenTexture())
	}
	drv.DeleteTexture(7)
	assert.Error(t, drv.SetExternalImage(7, image.NewRGBA(image.Rect(0, 0, 1, 1))))
}
