package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

func TestKeyIndex_IsNew(t *testing.T) {
	t.Parallel()

	idx := stream.NewKeyIndex()
	key := gff.DedupeKey("chr1", 10, 20, "gene")

	assert.True(t, idx.IsNew(key))
	assert.False(t, idx.IsNew(key))
	assert.True(t, idx.IsNew(gff.DedupeKey("chr1", 10, 20, "exon")))
	assert.Equal(t, 2, idx.Len())

	idx.Reset()
	assert.Equal(t, 0, idx.Len())
	assert.True(t, idx.IsNew(key))
}
