package stream_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

var discardLogger = slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

// featureLine renders one GFF3 record.
func featureLine(seq string, start, end int64, featureType string) string {
	return fmt.Sprintf("%s\ttest\t%s\t%d\t%d\t.\t+\t.\tID=%s_%d", seq, featureType, start, end, featureType, start)
}

func body(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

type reply struct {
	body string
	err  error
}

// scriptedQuerier answers requests in order from a script; once the script is
// exhausted it returns fallback.
type scriptedQuerier struct {
	mu       sync.Mutex
	script   []reply
	fallback reply
	requests []stream.RangeRequest
}

func (q *scriptedQuerier) QueryRange(_ context.Context, req stream.RangeRequest) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.requests = append(q.requests, req)

	if len(q.script) == 0 {
		return q.fallback.body, q.fallback.err
	}

	next := q.script[0]
	q.script = q.script[1:]

	return next.body, next.err
}

func (q *scriptedQuerier) calls() []stream.RangeRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]stream.RangeRequest(nil), q.requests...)
}

// blockingQuerier parks every request until release is closed.
type blockingQuerier struct {
	entered chan stream.RangeRequest
	release chan struct{}
	body    string
	err     error
}

func newBlockingQuerier(body string) *blockingQuerier {
	return &blockingQuerier{
		entered: make(chan stream.RangeRequest, 8),
		release: make(chan struct{}),
		body:    body,
	}
}

func (q *blockingQuerier) QueryRange(ctx context.Context, req stream.RangeRequest) (string, error) {
	q.entered <- req

	select {
	case <-q.release:
		return q.body, q.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	results []stream.WindowResult
}

func (o *recordingObserver) ObserveWindow(_ context.Context, res stream.WindowResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.results = append(o.results, res)
}

func (o *recordingObserver) kinds() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]string, 0, len(o.results))
	for _, r := range o.results {
		out = append(out, r.Kind)
	}

	return out
}
