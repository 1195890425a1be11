package capture

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	img := Render(70, 4, 3)
	assert.Equal(t, 70, img.Rect.Dx())
	assert.Equal(t, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}, img.RGBAAt(3, 2), "sweep column")
	assert.Equal(t, bars[0], img.RGBAAt(0, 0))
	assert.Equal(t, bars[len(bars)-1], img.RGBAAt(69, 0))

	wrapped := Render(70, 4, 73)
	assert.Equal(t, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}, wrapped.RGBAAt(3, 0))
}

func TestNewPatternValidation(t *testing.T) {
	_, err := NewPattern(10, 10, 0)
	assert.Error(t, err)
	_, err = NewPattern(0, 10, 30)
	assert.Error(t, err)
}

func TestPatternSourceLifecycle(t *testing.T) {
	src, err := NewPattern(16, 8, 60)
	require.NoError(t, err)
	require.NoError(t, src.Start())
	assert.Error(t, src.Start())

	select {
	case f := <-src.Frames():
		require.NotNil(t, f)
		assert.Equal(t, 16, f.Image.Rect.Dx())
		assert.False(t, f.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no frame produced")
	}

	src.Stop()
	src.Stop()
	for range src.Frames() {
	}
}
