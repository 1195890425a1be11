package pipeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/airview/internal/gles"
	"github.com/junsooki/airview/internal/gles/glestest"
	"github.com/junsooki/airview/internal/gles/soft"
	"github.com/junsooki/airview/internal/pipeline"
)

// bare is what a current context holds before the pipeline is built.
var bare = soft.Live{Devices: 1, Contexts: 1, Surfaces: 1}

func currentGL(t *testing.T, drv *soft.Driver) gles.Functions {
	t.Helper()
	dev, err := drv.Open()
	require.NoError(t, err)
	cfg, err := dev.ChooseConfig(gles.ConfigAttribs{RedSize: 8, GreenSize: 8, BlueSize: 8, RenderableType: gles.OpenGLES2Bit})
	require.NoError(t, err)
	ctx, err := dev.CreateContext(cfg, 2)
	require.NoError(t, err)
	sf, err := dev.CreateWindowSurface(cfg, glestest.NewWindow(16, 16))
	require.NoError(t, err)
	require.NoError(t, dev.MakeCurrent(sf, ctx))
	t.Cleanup(func() {
		dev.ReleaseCurrent()
		dev.DestroyContext(ctx)
		dev.DestroySurface(sf)
		dev.Terminate()
	})
	return ctx.Functions()
}

func TestBuildAndRelease(t *testing.T) {
	drv := soft.New()
	gl := currentGL(t, drv)

	p, err := pipeline.Build(gl)
	require.NoError(t, err)
	assert.Equal(t, soft.Live{Devices: 1, Contexts: 1, Surfaces: 1, Programs: 1, Buffers: 1}, drv.Live(),
		"shaders are deleted once linked")

	p.Viewport(16, 16)
	p.BindFrame(drv.GenTexture())
	assert.Equal(t, gles.NO_ERROR, gl.GetError())

	p.Release()
	assert.Equal(t, bare, drv.Live())
}

func TestBuildCompileFailure(t *testing.T) {
	for _, stage := range []gles.Enum{gles.VERTEX_SHADER, gles.FRAGMENT_SHADER} {
		drv := soft.New()
		gl := currentGL(t, drv)
		drv.SetFaults(soft.Faults{CompileStage: stage})

		p, err := pipeline.Build(gl)
		assert.Nil(t, p)
		var ce *pipeline.ShaderCompileError
		require.True(t, errors.As(err, &ce), "got %v", err)
		assert.Equal(t, stage, ce.Stage)
		assert.Contains(t, ce.Log, "rejected by driver")
		assert.Equal(t, bare, drv.Live())
	}
}

func TestBuildLinkFailure(t *testing.T) {
	drv := soft.New()
	gl := currentGL(t, drv)
	drv.SetFaults(soft.Faults{Link: true})

	_, err := pipeline.Build(gl)
	var le *pipeline.ProgramLinkError
	require.True(t, errors.As(err, &le), "got %v", err)
	assert.Equal(t, "Link rejected by driver.", le.Log)
	assert.EqualError(t, err, "link program: Link rejected by driver.")
	assert.Equal(t, bare, drv.Live())
}
