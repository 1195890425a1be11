package session

import "fmt"

// DeviceError reports that the graphics device could not be opened.
type DeviceError struct {
	Err error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("open device: %v", e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }

// ConfigError reports that no framebuffer configuration matched.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("choose config: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// ContextCreationError reports a context that could not be created or made
// current.
type ContextCreationError struct {
	Op  string
	Err error
}

func (e *ContextCreationError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *ContextCreationError) Unwrap() error { return e.Err }

// SurfaceCreationError reports a window surface that could not be created.
type SurfaceCreationError struct {
	Err error
}

func (e *SurfaceCreationError) Error() string { return fmt.Sprintf("create window surface: %v", e.Err) }
func (e *SurfaceCreationError) Unwrap() error { return e.Err }
