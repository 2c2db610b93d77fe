package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

const (
	metricWindowsTotal     = "gffstream.windows.total"
	metricWindowDuration   = "gffstream.window.duration.seconds"
	metricFeaturesFresh    = "gffstream.features.fresh.total"
	metricFeaturesDup      = "gffstream.features.duplicate.total"
	metricLinesDropped     = "gffstream.lines.dropped.total"
	metricBufferedFeatures = "gffstream.buffer.features"

	attrResult = "result"
	attrRegion = "region"
)

// windowBucketBoundaries covers 1ms local reads up to 30s remote queries.
var windowBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// StreamMetrics records per-window outcomes. It implements
// stream.WindowObserver.
type StreamMetrics struct {
	windows    metric.Int64Counter
	duration   metric.Float64Histogram
	fresh      metric.Int64Counter
	duplicates metric.Int64Counter
	dropped    metric.Int64Counter
	buffered   metric.Int64Gauge
}

var _ stream.WindowObserver = (*StreamMetrics)(nil)

// NewStreamMetrics creates the stream instruments on mt.
func NewStreamMetrics(mt metric.Meter) (*StreamMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &StreamMetrics{
		windows:    b.counter(metricWindowsTotal, "Window fetches by result", "{window}"),
		duration:   b.histogram(metricWindowDuration, "Range query duration per window", "s", windowBucketBoundaries...),
		fresh:      b.counter(metricFeaturesFresh, "Features delivered after deduplication", "{feature}"),
		duplicates: b.counter(metricFeaturesDup, "Features suppressed as already delivered", "{feature}"),
		dropped:    b.counter(metricLinesDropped, "Malformed record lines skipped", "{line}"),
		buffered:   b.gauge(metricBufferedFeatures, "Features held in the session buffer", "{feature}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// ObserveWindow records one window result.
func (sm *StreamMetrics) ObserveWindow(ctx context.Context, res stream.WindowResult) {
	region := attribute.String(attrRegion, res.Region)
	attrs := metric.WithAttributes(attribute.String(attrResult, res.Kind), region)

	sm.windows.Add(ctx, 1, attrs)
	sm.duration.Record(ctx, res.Duration.Seconds(), attrs)

	if res.Kind != stream.ResultFeatures && res.Kind != stream.ResultEmpty {
		return
	}

	regionOnly := metric.WithAttributes(region)

	sm.fresh.Add(ctx, int64(res.Fresh), regionOnly)
	sm.duplicates.Add(ctx, int64(res.Duplicates), regionOnly)
	sm.dropped.Add(ctx, int64(res.Dropped), regionOnly)
	sm.buffered.Record(ctx, int64(res.Buffered), regionOnly)
}
