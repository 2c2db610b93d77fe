package interval_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Sumatoshi-tech/gffstream/pkg/alg/interval"
)

type span = interval.Interval[int64, int]

func TestTree_Empty(t *testing.T) {
	t.Parallel()

	tree := interval.New[int64, int]()

	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.QueryOverlap(0, 100))
}

func TestTree_QueryOverlapIsInclusive(t *testing.T) {
	t.Parallel()

	tree := interval.New[int64, int]()
	tree.Insert(100, 200, 1)
	tree.Insert(300, 400, 2)
	tree.Insert(150, 350, 3)

	assert.Equal(t, []span{{100, 200, 1}, {150, 350, 3}}, tree.QueryOverlap(200, 299))
	assert.Equal(t, []span{{150, 350, 3}, {300, 400, 2}}, tree.QueryOverlap(350, 350))
	assert.Empty(t, tree.QueryOverlap(401, 500))
	assert.Empty(t, tree.QueryOverlap(0, 99))
	assert.Equal(t, 3, tree.Len())
}

func TestTree_QueryPoint(t *testing.T) {
	t.Parallel()

	tree := interval.New[int64, int]()
	tree.Insert(10, 20, 1)
	tree.Insert(15, 25, 2)

	assert.Equal(t, []span{{10, 20, 1}, {15, 25, 2}}, tree.QueryPoint(18))
	assert.Equal(t, []span{{15, 25, 2}}, tree.QueryPoint(25))
}

func TestTree_DuplicatesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	tree := interval.New[int64, int]()
	for i := range 10 {
		tree.Insert(5, 5, i)
	}

	got := tree.QueryPoint(5)
	require.Len(t, got, 10)

	for i, iv := range got {
		assert.Equal(t, i, iv.Value)
	}
}

func TestTree_InvertedQueryAndRange(t *testing.T) {
	t.Parallel()

	tree := interval.New[int64, int]()
	tree.Insert(50, 40, 1)
	tree.Insert(10, 60, 2)

	assert.Equal(t, []span{{10, 60, 2}}, tree.QueryOverlap(45, 45))
	assert.Empty(t, tree.QueryOverlap(60, 10))
}

func TestTree_VisitStopsEarly(t *testing.T) {
	t.Parallel()

	tree := interval.New[int64, int]()
	for i := range 20 {
		tree.Insert(int64(i), int64(i+5), i)
	}

	var seen []int

	tree.VisitOverlap(0, 100, func(iv span) bool {
		seen = append(seen, iv.Value)

		return len(seen) < 3
	})

	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestTree_Clear(t *testing.T) {
	t.Parallel()

	tree := interval.New[int64, int]()
	tree.Insert(1, 2, 0)
	tree.Clear()

	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.QueryPoint(1))
}

func TestTree_MatchesLinearScan(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		tree := interval.New[int64, int]()

		n := rapid.IntRange(0, 200).Draw(rt, "n")
		all := make([]span, 0, n)

		for i := range n {
			low := rapid.Int64Range(0, 1000).Draw(rt, "low")
			length := rapid.Int64Range(0, 100).Draw(rt, "length")

			tree.Insert(low, low+length, i)
			all = append(all, span{Low: low, High: low + length, Value: i})
		}

		qLow := rapid.Int64Range(0, 1100).Draw(rt, "qlow")
		qHigh := qLow + rapid.Int64Range(0, 200).Draw(rt, "qlen")

		var want []span

		for _, iv := range all {
			if iv.Low <= qHigh && iv.High >= qLow {
				want = append(want, iv)
			}
		}

		slices.SortStableFunc(want, func(a, b span) int {
			if a.Low != b.Low {
				return int(a.Low - b.Low)
			}

			return int(a.High - b.High)
		})

		require.Equal(rt, want, tree.QueryOverlap(qLow, qHigh))
	})
}
