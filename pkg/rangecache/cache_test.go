package rangecache_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/gffstream/pkg/rangecache"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

var errTransient = errors.New("connection reset")

type countingQuerier struct {
	calls atomic.Int64
	fn    func(stream.RangeRequest) (string, error)
}

func (q *countingQuerier) QueryRange(_ context.Context, req stream.RangeRequest) (string, error) {
	q.calls.Add(1)

	return q.fn(req)
}

func windowBody(req stream.RangeRequest) string {
	var sb strings.Builder

	for i := range 50 {
		fmt.Fprintf(&sb, "%s\tEnsembl\tgene\t%d\t%d\t.\t+\t.\tID=g%d\n", req.Region, req.Start+int64(i), req.Start+int64(i)+10, i)
	}

	return sb.String()
}

func request(start int64) stream.RangeRequest {
	return stream.RangeRequest{AnnotationID: "GRCh38", Region: "chr1", Start: start, End: start + 100_000}
}

func TestQuerier_HitSkipsUpstream(t *testing.T) {
	t.Parallel()

	upstream := &countingQuerier{fn: func(req stream.RangeRequest) (string, error) { return windowBody(req), nil }}
	q := rangecache.New(upstream, 0)

	ctx := context.Background()

	first, err := q.QueryRange(ctx, request(0))
	require.NoError(t, err)

	second, err := q.QueryRange(ctx, request(0))
	require.NoError(t, err)

	assert.Equal(t, windowBody(request(0)), first)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), upstream.calls.Load())

	stats := q.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.Less(t, stats.CurrentSize, int64(len(first)))
}

func TestQuerier_KeyCoversFilters(t *testing.T) {
	t.Parallel()

	upstream := &countingQuerier{fn: func(req stream.RangeRequest) (string, error) { return req.Filters.Type, nil }}
	q := rangecache.New(upstream, 0)

	ctx := context.Background()
	req := request(0)

	_, err := q.QueryRange(ctx, req)
	require.NoError(t, err)

	req.Filters.Type = "exon"

	body, err := q.QueryRange(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "exon", body)
	assert.Equal(t, int64(2), upstream.calls.Load())

	assert.NotEqual(t, rangecache.Key(request(0)), rangecache.Key(req))
}

func TestQuerier_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()

	for name, cause := range map[string]error{
		"not found": fmt.Errorf("sequence %q: %w", "scaffold_999", stream.ErrRegionNotFound),
		"transient": errTransient,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			upstream := &countingQuerier{fn: func(stream.RangeRequest) (string, error) { return "", cause }}
			q := rangecache.New(upstream, 0)

			for range 2 {
				_, err := q.QueryRange(context.Background(), request(0))
				require.ErrorIs(t, err, cause)
			}

			assert.Equal(t, int64(2), upstream.calls.Load())
			assert.Equal(t, 0, q.Stats().Entries)
		})
	}
}

func TestQuerier_EmptyAndIncompressibleBodies(t *testing.T) {
	t.Parallel()

	bodies := map[int64]string{0: "", 1: "x\n"}
	upstream := &countingQuerier{fn: func(req stream.RangeRequest) (string, error) { return bodies[req.Start], nil }}
	q := rangecache.New(upstream, 0)

	ctx := context.Background()

	for range 2 {
		for start, want := range bodies {
			got, err := q.QueryRange(ctx, request(start))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}

	assert.Equal(t, int64(2), upstream.calls.Load())
}

func TestQuerier_EvictsWithinBudget(t *testing.T) {
	t.Parallel()

	fixed := windowBody(request(0))
	upstream := &countingQuerier{fn: func(stream.RangeRequest) (string, error) { return fixed, nil }}
	ctx := context.Background()

	probe := rangecache.New(upstream, 0)
	_, err := probe.QueryRange(ctx, request(1_000_000_000))
	require.NoError(t, err)

	budget := 3 * probe.Stats().CurrentSize
	q := rangecache.New(upstream, budget)

	for i := range 20 {
		_, err = q.QueryRange(ctx, request(int64(i)*100_001))
		require.NoError(t, err)
	}

	stats := q.Stats()
	assert.LessOrEqual(t, stats.CurrentSize, budget)
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, int64(17), stats.Evictions)

	q.Purge()
	assert.Equal(t, 0, q.Stats().Entries)
}

func TestQuerier_SharesInFlightQuery(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	var entered sync.Once

	started := make(chan struct{})
	upstream := &countingQuerier{fn: func(req stream.RangeRequest) (string, error) {
		entered.Do(func() { close(started) })
		<-release

		return windowBody(req), nil
	}}
	q := rangecache.New(upstream, 0)

	var group errgroup.Group

	group.Go(func() error {
		_, err := q.QueryRange(context.Background(), request(0))

		return err
	})

	<-started

	for range 4 {
		group.Go(func() error {
			_, err := q.QueryRange(context.Background(), request(0))

			return err
		})
	}

	close(release)
	require.NoError(t, group.Wait())

	assert.LessOrEqual(t, upstream.calls.Load(), int64(5))
	assert.GreaterOrEqual(t, upstream.calls.Load(), int64(1))
}

// gatedQuerier parks each request until release is closed or its context
// ends.
type gatedQuerier struct {
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}
}

func (q *gatedQuerier) QueryRange(ctx context.Context, req stream.RangeRequest) (string, error) {
	q.calls.Add(1)
	q.entered <- struct{}{}

	select {
	case <-q.release:
		return windowBody(req), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestQuerier_CancelledCallerDoesNotFailJoiners(t *testing.T) {
	t.Parallel()

	upstream := &gatedQuerier{entered: make(chan struct{}, 1), release: make(chan struct{})}
	q := rangecache.New(upstream, 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)

	go func() {
		_, err := q.QueryRange(firstCtx, request(0))
		firstErr <- err
	}()

	<-upstream.entered
	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	// The upstream call is still in flight, so this caller joins it.
	secondBody := make(chan string, 1)
	secondErr := make(chan error, 1)

	go func() {
		body, err := q.QueryRange(context.Background(), request(0))
		secondBody <- body
		secondErr <- err
	}()

	close(upstream.release)

	require.NoError(t, <-secondErr)
	assert.Equal(t, windowBody(request(0)), <-secondBody)
	assert.Equal(t, int64(1), upstream.calls.Load())

	_, err := q.QueryRange(context.Background(), request(0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), upstream.calls.Load())
}

func TestQuerier_BehindDriver(t *testing.T) {
	t.Parallel()

	upstream := &countingQuerier{fn: func(req stream.RangeRequest) (string, error) {
		if req.Start > 0 {
			return "", nil
		}

		return windowBody(req), nil
	}}
	q := rangecache.New(upstream, 0)

	d, err := stream.NewDriver(q, stream.Params{AnnotationID: "GRCh38", Region: "chr1"})
	require.NoError(t, err)

	ctx := context.Background()

	for range 2 {
		snap, pumpErr := stream.Pump(ctx, d, stream.PumpConfig{})
		require.NoError(t, pumpErr)
		assert.Len(t, snap.Features, 50)

		require.NoError(t, d.Reset(snap.Params))
	}

	assert.Equal(t, int64(1+stream.DefaultMaxEmptyWindows), upstream.calls.Load())
}
