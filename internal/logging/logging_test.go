package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsSilent(t *testing.T) {
	assert.False(t, Logger().Enabled(t.Context(), -8))
}

func TestNewAndSetLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", &buf)
	require.NoError(t, err)

	SetLogger(l)
	t.Cleanup(func() { SetLogger(nil) })

	Logger().Info("hidden")
	Logger().Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown k=1")

	SetLogger(nil)
	Logger().Error("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestNewBadLevel(t *testing.T) {
	_, err := New("loud", &bytes.Buffer{})
	assert.ErrorContains(t, err, `log level "loud"`)
}
