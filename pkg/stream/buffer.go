package stream

import (
	"slices"

	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
)

// DefaultMaxFeatures is the buffer cap. It bounds render cost for consumers,
// not data correctness.
const DefaultMaxFeatures = 400

// Buffer holds the most recently received features, evicting the oldest once
// the cap is exceeded.
type Buffer struct {
	items []gff.Feature
	limit int
}

// NewBuffer returns a buffer capped at limit; non-positive limits use
// DefaultMaxFeatures.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultMaxFeatures
	}

	return &Buffer{
		items: make([]gff.Feature, 0, limit),
		limit: limit,
	}
}

// Append adds features in arrival order and evicts from the front until the
// buffer is back at its cap.
func (b *Buffer) Append(features []gff.Feature) {
	if len(features) >= b.limit {
		clear(b.items)
		b.items = append(b.items[:0], features[len(features)-b.limit:]...)

		return
	}

	b.items = append(b.items, features...)

	if overflow := len(b.items) - b.limit; overflow > 0 {
		b.items = slices.Delete(b.items, 0, overflow)
	}
}

// Snapshot returns a copy of the buffered features, oldest first.
func (b *Buffer) Snapshot() []gff.Feature {
	return slices.Clone(b.items)
}

// Len returns the number of buffered features.
func (b *Buffer) Len() int { return len(b.items) }

// Cap returns the configured maximum.
func (b *Buffer) Cap() int { return b.limit }

// Reset empties the buffer.
func (b *Buffer) Reset() {
	clear(b.items)
	b.items = b.items[:0]
}
