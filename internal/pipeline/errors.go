package pipeline

import (
	"fmt"

	"github.com/junsooki/airview/internal/gles"
)

// maxInfoLog bounds captured compiler and linker diagnostics, in bytes.
const maxInfoLog = 512

// ShaderCompileError reports a shader stage that did not compile.
type ShaderCompileError struct {
	Stage gles.Enum
	Log   string
}

func (e *ShaderCompileError) Error() string {
	return fmt.Sprintf("compile %s shader: %s", stageName(e.Stage), e.Log)
}

// ProgramLinkError reports a program that did not link.
type ProgramLinkError struct {
	Log string
}

func (e *ProgramLinkError) Error() string {
	return fmt.Sprintf("link program: %s", e.Log)
}

func stageName(stage gles.Enum) string {
	switch stage {
	case gles.VERTEX_SHADER:
		return "vertex"
	case gles.FRAGMENT_SHADER:
		return "fragment"
	}
	return fmt.Sprintf("0x%x", uint32(stage))
}

func truncate(log string) string {
	if len(log) <= maxInfoLog {
		return log
	}
	return log[:maxInfoLog]
}
