package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/gffstream/pkg/alg/lru"
)

const (
	metricCacheHits      = "gffstream.cache.hits.total"
	metricCacheMisses    = "gffstream.cache.misses.total"
	metricCacheEvictions = "gffstream.cache.evictions.total"
	metricCacheEntries   = "gffstream.cache.entries"
	metricCacheBytes     = "gffstream.cache.bytes"
)

// RegisterCacheMetrics exports range cache statistics as observable
// instruments read from stats at collection time. Call the returned function
// to unregister.
func RegisterCacheMetrics(mt metric.Meter, stats func() lru.Stats) (func() error, error) {
	b := newMetricBuilder(mt)

	hits := b.observableCounter(metricCacheHits, "Range cache hits", "{lookup}")
	misses := b.observableCounter(metricCacheMisses, "Range cache misses", "{lookup}")
	evictions := b.observableCounter(metricCacheEvictions, "Range cache evictions", "{entry}")
	entries := b.observableGauge(metricCacheEntries, "Range cache entries", "{entry}")
	size := b.observableGauge(metricCacheBytes, "Range cache compressed bytes", "By")

	if b.err != nil {
		return nil, b.err
	}

	reg, err := mt.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()

		o.ObserveInt64(hits, s.Hits)
		o.ObserveInt64(misses, s.Misses)
		o.ObserveInt64(evictions, s.Evictions)
		o.ObserveInt64(entries, int64(s.Entries))
		o.ObserveInt64(size, s.CurrentSize)

		return nil
	}, hits, misses, evictions, entries, size)
	if err != nil {
		return nil, fmt.Errorf("register cache callback: %w", err)
	}

	return reg.Unregister, nil
}
