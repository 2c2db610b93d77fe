package stream

import (
	"context"
	"errors"
)

// ErrRegionNotFound is returned by a RangeQuerier when the requested region or
// sequence does not exist for the annotation. It is distinct from a transient
// failure and is never retried.
var ErrRegionNotFound = errors.New("region not found")

// Filters narrows a range query by categorical feature properties.
// Empty fields do not filter.
type Filters struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Biotype string `json:"biotype,omitempty" yaml:"biotype,omitempty"`
}

// IsZero reports whether no filter is active.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// RangeRequest addresses one window of one sequence of one annotation.
// Start and End are inclusive.
type RangeRequest struct {
	AnnotationID string
	Region       string
	Start        int64
	End          int64
	Filters      Filters
}

// RangeQuerier fetches the records of a coordinate range as newline-delimited,
// tab-separated feature lines. Implementations return an error wrapping
// ErrRegionNotFound when the region does not exist.
type RangeQuerier interface {
	QueryRange(ctx context.Context, req RangeRequest) (string, error)
}

// RangeQuerierFunc adapts a function to the RangeQuerier interface.
type RangeQuerierFunc func(ctx context.Context, req RangeRequest) (string, error)

// QueryRange calls fn.
func (fn RangeQuerierFunc) QueryRange(ctx context.Context, req RangeRequest) (string, error) {
	return fn(ctx, req)
}
