package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

func TestGuard(t *testing.T) {
	t.Parallel()

	var g stream.Guard

	tok := g.Capture()
	assert.True(t, g.IsCurrent(tok))

	next := g.Advance()
	assert.False(t, g.IsCurrent(tok))
	assert.True(t, g.IsCurrent(next))
	assert.Equal(t, next, g.Capture())
}
