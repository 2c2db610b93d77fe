// Package stream implements the windowed feature streaming controller: it
// walks one reference sequence window by window through a RangeQuerier,
// deduplicates features across window boundaries, keeps the most recent ones
// in a bounded buffer, detects end of data without a length hint, and ignores
// responses that arrive after the session was reset.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
)

const tracerName = "gffstream/stream"

// ErrWindowFetch wraps range query failures that ended a session.
var ErrWindowFetch = errors.New("window fetch failed")

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer sets the tracer used for one span per window fetch.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Driver) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithObserver registers a per-window observer, typically metrics.
func WithObserver(obs WindowObserver) Option {
	return func(d *Driver) {
		if obs != nil {
			d.observer = obs
		}
	}
}

// WithMaxFeatures sets the buffer cap.
func WithMaxFeatures(n int) Option {
	return func(d *Driver) { d.maxFeatures = n }
}

// WithMaxEmptyWindows sets the empty-window streak that ends a session.
func WithMaxEmptyWindows(n int) Option {
	return func(d *Driver) { d.maxEmpty = n }
}

// Driver owns one streaming session at a time. It is safe for concurrent use;
// a FetchNextWindow call made while another is in flight returns immediately.
type Driver struct {
	source   RangeQuerier
	logger   *slog.Logger
	tracer   trace.Tracer
	observer WindowObserver

	maxFeatures int
	maxEmpty    int

	mu        sync.Mutex
	params    Params
	sessionID string
	guard     Guard
	cursor    *Cursor
	seen      *KeyIndex
	buffer    *Buffer

	lastWindow *Window
	regionErr  string
	lastErr    string
	dropped    int
	windows    int
}

// NewDriver creates a driver and starts a session for params.
func NewDriver(source RangeQuerier, params Params, opts ...Option) (*Driver, error) {
	d := &Driver{
		source:      source,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		observer:    nopObserver{},
		maxFeatures: DefaultMaxFeatures,
		maxEmpty:    DefaultMaxEmptyWindows,
		seen:        NewKeyIndex(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.buffer = NewBuffer(d.maxFeatures)

	err := d.Reset(params)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// Reset starts a new session. Any fetch still in flight for the previous
// session is discarded when it completes. Invalid params leave the current
// session untouched.
func (d *Driver) Reset(params Params) error {
	params = params.Normalize()

	err := params.Validate()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.guard.Advance()
	d.params = params
	d.sessionID = uuid.NewString()
	d.cursor = NewCursor(params.Start, params.End, params.WindowSize, d.maxEmpty)
	d.seen.Reset()
	d.buffer.Reset()
	d.lastWindow = nil
	d.regionErr = ""
	d.lastErr = ""
	d.dropped = 0
	d.windows = 0

	d.logger.Info("stream session reset",
		"session_id", d.sessionID,
		"annotation", params.AnnotationID,
		"region", params.Region,
		"start", params.Start,
		"end", params.End,
		"window_size", params.WindowSize,
		"generation", uint64(d.guard.Capture()),
	)

	return nil
}

// FetchNextWindow performs one streaming step. It is a no-op while a fetch is
// in flight or after the session is exhausted. A missing region ends the
// session without an error; the condition is reported through Snapshot. Any
// other range query failure ends the session and is returned.
func (d *Driver) FetchNextWindow(ctx context.Context) error {
	d.mu.Lock()

	if d.cursor.State() != StateReady {
		d.mu.Unlock()

		return nil
	}

	win, ok := d.cursor.Next()
	if !ok {
		d.cursor.Exhaust()
		d.logger.Debug("stream upper bound reached",
			"session_id", d.sessionID, "region", d.params.Region, "cursor", d.cursor.Position())
		d.mu.Unlock()

		return nil
	}

	token := d.guard.Capture()
	d.cursor.Begin()
	req := d.params.request(win)
	sessionID := d.sessionID
	d.mu.Unlock()

	ctx, span := d.tracer.Start(ctx, "stream.fetch_window",
		trace.WithAttributes(
			attribute.String("gff.annotation", req.AnnotationID),
			attribute.String("gff.region", req.Region),
			attribute.Int64("gff.window.start", win.Start),
			attribute.Int64("gff.window.end", win.End),
			attribute.String("stream.session_id", sessionID),
		),
	)
	defer span.End()

	startedAt := time.Now()
	body, queryErr := d.source.QueryRange(ctx, req)
	elapsed := time.Since(startedAt)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.guard.IsCurrent(token) {
		span.SetAttributes(attribute.Bool("stream.stale", true))
		d.observer.ObserveWindow(ctx, WindowResult{Kind: ResultStale, Region: req.Region, Window: win, Duration: elapsed})
		d.logger.DebugContext(ctx, "stream discarded stale window",
			"session_id", sessionID, "region", req.Region, "window_start", win.Start, "window_end", win.End)

		return nil
	}

	if queryErr != nil {
		return d.failLocked(ctx, span, req, win, queryErr, elapsed)
	}

	return d.applyLocked(ctx, span, req, win, body, elapsed)
}

func (d *Driver) applyLocked(
	ctx context.Context,
	span trace.Span,
	req RangeRequest,
	win Window,
	body string,
	elapsed time.Duration,
) error {
	var (
		fresh            []gff.Feature
		parsed, dropped  int
		duplicates, kept int
	)

	for line := range strings.SplitSeq(body, "\n") {
		feature, ok := gff.ParseLine(line)
		if !ok {
			if gff.IsRecordLine(line) {
				dropped++
			}

			continue
		}

		parsed++

		if !d.seen.IsNew(feature.DedupeKey()) {
			duplicates++

			continue
		}

		fresh = append(fresh, feature)
	}

	kept = len(fresh)
	d.dropped += dropped
	d.windows++
	d.cursor.Complete(win, kept)

	kind := ResultEmpty

	if kept > 0 {
		kind = ResultFeatures
		d.buffer.Append(fresh)

		shown := win
		d.lastWindow = &shown
	}

	span.SetAttributes(
		attribute.Int("gff.features.parsed", parsed),
		attribute.Int("gff.features.fresh", kept),
		attribute.Int("gff.lines.dropped", dropped),
	)

	d.observer.ObserveWindow(ctx, WindowResult{
		Kind:       kind,
		Region:     req.Region,
		Window:     win,
		Parsed:     parsed,
		Fresh:      kept,
		Duplicates: duplicates,
		Dropped:    dropped,
		Buffered:   d.buffer.Len(),
		Duration:   elapsed,
	})

	d.logger.DebugContext(ctx, "stream window applied",
		"session_id", d.sessionID,
		"region", req.Region,
		"window_start", win.Start,
		"window_end", win.End,
		"fresh", kept,
		"duplicates", duplicates,
		"dropped", dropped,
		"empty_streak", d.cursor.EmptyStreak(),
		"state", d.cursor.State().String(),
	)

	return nil
}

func (d *Driver) failLocked(
	ctx context.Context,
	span trace.Span,
	req RangeRequest,
	win Window,
	err error,
	elapsed time.Duration,
) error {
	d.cursor.Exhaust()

	if errors.Is(err, ErrRegionNotFound) {
		d.regionErr = fmt.Sprintf("region %q not found in annotation %q", req.Region, req.AnnotationID)
		span.SetStatus(codes.Error, d.regionErr)
		d.observer.ObserveWindow(ctx, WindowResult{Kind: ResultNotFound, Region: req.Region, Window: win, Duration: elapsed})
		d.logger.WarnContext(ctx, "stream region not found",
			"session_id", d.sessionID, "annotation", req.AnnotationID, "region", req.Region)

		return nil
	}

	d.lastErr = err.Error()
	span.RecordError(err)
	span.SetStatus(codes.Error, d.lastErr)
	d.observer.ObserveWindow(ctx, WindowResult{Kind: ResultError, Region: req.Region, Window: win, Duration: elapsed})
	d.logger.ErrorContext(ctx, "stream window fetch failed",
		"session_id", d.sessionID,
		"region", req.Region,
		"window_start", win.Start,
		"window_end", win.End,
		"error", err,
	)

	return fmt.Errorf("%w: %s %s: %w", ErrWindowFetch, req.Region, win, err)
}

// Snapshot returns the current observable state. Features are copied.
func (d *Driver) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{
		SessionID:         d.sessionID,
		Generation:        uint64(d.guard.Capture()),
		Params:            d.params,
		Features:          d.buffer.Snapshot(),
		Cursor:            d.cursor.Position(),
		State:             d.cursor.State(),
		Exhausted:         d.cursor.State() == StateExhausted,
		RegionError:       d.regionErr,
		LastError:         d.lastErr,
		EmptyWindowStreak: d.cursor.EmptyStreak(),
		WindowsFetched:    d.windows,
		DroppedLines:      d.dropped,
		KeysSeen:          d.seen.Len(),
	}

	if d.lastWindow != nil {
		shown := *d.lastWindow
		snap.LastWindowShown = &shown
	}

	return snap
}
