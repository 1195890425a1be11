package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/junsooki/airview/internal/gles"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))
	long := strings.Repeat("x", maxInfoLog+100)
	assert.Len(t, truncate(long), maxInfoLog)
}

func TestShaderCompileErrorMessage(t *testing.T) {
	err := &ShaderCompileError{Stage: gles.FRAGMENT_SHADER, Log: "ERROR: 0:1: '' : bad"}
	assert.Equal(t, "compile fragment shader: ERROR: 0:1: '' : bad", err.Error())
	assert.Equal(t, "0x1234", stageName(0x1234))
}
