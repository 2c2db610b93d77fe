package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

func features(from, n int) []gff.Feature {
	out := make([]gff.Feature, 0, n)
	for i := range n {
		pos := int64(from + i)
		out = append(out, gff.Feature{SequenceID: "chr1", Type: "gene", Start: pos, End: pos})
	}

	return out
}

func starts(fs []gff.Feature) []int64 {
	out := make([]int64, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Start)
	}

	return out
}

func TestBuffer_DefaultLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, stream.DefaultMaxFeatures, stream.NewBuffer(0).Cap())
	assert.Equal(t, 7, stream.NewBuffer(7).Cap())
}

func TestBuffer_EvictsOldest(t *testing.T) {
	t.Parallel()

	b := stream.NewBuffer(4)
	b.Append(features(1, 3))
	b.Append(features(4, 3))

	assert.Equal(t, []int64{3, 4, 5, 6}, starts(b.Snapshot()))
}

func TestBuffer_OversizedBatch(t *testing.T) {
	t.Parallel()

	b := stream.NewBuffer(3)
	b.Append(features(1, 1))
	b.Append(features(10, 5))

	assert.Equal(t, []int64{12, 13, 14}, starts(b.Snapshot()))
}

func TestBuffer_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	b := stream.NewBuffer(3)
	b.Append(features(1, 2))

	snap := b.Snapshot()
	snap[0].Start = 999

	assert.Equal(t, []int64{1, 2}, starts(b.Snapshot()))

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Len(t, snap, 2)
}

func TestBuffer_KeepsNewestSuffix(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(rt, "limit")
		batches := rapid.SliceOf(rapid.IntRange(0, 80)).Draw(rt, "batches")

		b := stream.NewBuffer(limit)

		var all []int64

		next := 0
		for _, n := range batches {
			batch := features(next, n)
			next += n

			b.Append(batch)
			all = append(all, starts(batch)...)

			require.LessOrEqual(rt, b.Len(), limit)
		}

		want := all
		if len(want) > limit {
			want = want[len(want)-limit:]
		}

		got := starts(b.Snapshot())
		if len(want) == 0 {
			require.Empty(rt, got)

			return
		}

		require.Equal(rt, want, got)
	})
}
