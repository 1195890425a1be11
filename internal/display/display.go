package display

import "github.com/junsooki/airview/internal/gles"

// Display shows presented frames until the user closes it.
type Display interface {
	gles.NativeWindow
	gles.Presenter
	Run() error
}
