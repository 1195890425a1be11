package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoid(t *testing.T) {
	here := goid()
	assert.NotZero(t, here)
	assert.Equal(t, here, goid())

	other := make(chan uint64)
	go func() { other <- goid() }()
	assert.NotEqual(t, here, <-other)
}
