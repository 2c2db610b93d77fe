// Package rangecache memoizes range query bodies. Bodies are LZ4 block
// compressed and held in a byte-bounded LRU; identical concurrent queries
// share one upstream call. Failures, including missing regions, are never
// cached.
package rangecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/sync/singleflight"

	"github.com/Sumatoshi-tech/gffstream/pkg/alg/lru"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

// DefaultMaxBytes is the cache budget used when New is given a non-positive
// size.
const DefaultMaxBytes = 64 << 20

// keySep cannot appear in a sequence ID or a column value.
const keySep = "\x00"

// ErrCorruptEntry is returned when a cached body fails to decompress. The
// entry is dropped and the query is retried upstream.
var ErrCorruptEntry = errors.New("corrupt cache entry")

type block struct {
	data       []byte
	rawLen     int
	compressed bool
	keyLen     int
}

func (b block) size() int64 { return int64(len(b.data) + b.keyLen) }

// Option configures a Querier.
type Option func(*Querier)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Querier) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// Querier wraps a stream.RangeQuerier with a cache.
type Querier struct {
	next   stream.RangeQuerier
	logger *slog.Logger
	cache  *lru.Cache[string, block]
	flight singleflight.Group
}

var _ stream.RangeQuerier = (*Querier)(nil)

// New returns a caching wrapper around next holding at most maxBytes of
// compressed bodies.
func New(next stream.RangeQuerier, maxBytes int64, opts ...Option) *Querier {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	q := &Querier{next: next, logger: slog.Default()}

	for _, opt := range opts {
		opt(q)
	}

	q.cache = lru.New(lru.WithMaxBytes[string](maxBytes, block.size))

	return q
}

// QueryRange serves req from the cache or forwards it.
func (q *Querier) QueryRange(ctx context.Context, req stream.RangeRequest) (string, error) {
	key := Key(req)

	if b, ok := q.cache.Get(key); ok {
		body, err := b.decode()
		if err == nil {
			return body, nil
		}

		q.cache.Remove(key)
		q.logger.WarnContext(ctx, "range cache entry dropped", "region", req.Region, "error", err)
	}

	// The shared query outlives any single caller; each caller still stops
	// waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)

	ch := q.flight.DoChan(key, func() (any, error) {
		body, queryErr := q.next.QueryRange(flightCtx, req)
		if queryErr != nil {
			return "", queryErr
		}

		b := encode(body)
		b.keyLen = len(key)

		if !q.cache.Put(key, b) {
			q.logger.DebugContext(flightCtx, "range cache body too large", "region", req.Region, "bytes", len(body))
		}

		return body, nil
	})

	var res singleflight.Result

	select {
	case res = <-ch:
	case <-ctx.Done():
		return "", fmt.Errorf("range cache %s: %w", req.Region, ctx.Err())
	}

	if res.Err != nil {
		return "", res.Err
	}

	if res.Shared {
		q.logger.DebugContext(ctx, "range cache shared in-flight query", "region", req.Region)
	}

	body, _ := res.Val.(string)

	return body, nil
}

// Stats returns the underlying cache statistics.
func (q *Querier) Stats() lru.Stats { return q.cache.Stats() }

// Purge drops every cached body.
func (q *Querier) Purge() { q.cache.Clear() }

// Key renders the cache key for req. Every request field participates.
func Key(req stream.RangeRequest) string {
	var sb strings.Builder

	for i, part := range []string{
		req.AnnotationID,
		req.Region,
		strconv.FormatInt(req.Start, 10),
		strconv.FormatInt(req.End, 10),
		req.Filters.Type,
		req.Filters.Source,
		req.Filters.Biotype,
	} {
		if i > 0 {
			sb.WriteString(keySep)
		}

		sb.WriteString(part)
	}

	return sb.String()
}

func encode(body string) block {
	if body == "" {
		return block{}
	}

	dst := make([]byte, lz4.CompressBlockBound(len(body)))

	n, err := lz4.CompressBlock([]byte(body), dst, nil)
	if err != nil || n == 0 || n >= len(body) {
		return block{data: []byte(body), rawLen: len(body)}
	}

	return block{data: bytes.Clone(dst[:n]), rawLen: len(body), compressed: true}
}

func (b block) decode() (string, error) {
	if !b.compressed {
		return string(b.data), nil
	}

	dst := make([]byte, b.rawLen)

	n, err := lz4.UncompressBlock(b.data, dst)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}

	if n != b.rawLen {
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrCorruptEntry, n, b.rawLen)
	}

	return string(dst), nil
}
