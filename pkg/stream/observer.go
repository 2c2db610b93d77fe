package stream

import (
	"context"
	"time"
)

// Window result kinds reported to a WindowObserver.
const (
	ResultFeatures = "features"
	ResultEmpty    = "empty"
	ResultStale    = "stale"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// WindowResult describes one completed fetch.
type WindowResult struct {
	Kind       string
	Region     string
	Window     Window
	Parsed     int
	Fresh      int
	Duplicates int
	Dropped    int
	Buffered   int
	Duration   time.Duration
}

// WindowObserver receives one result per completed fetch, including stale
// ones. Implementations must not block.
type WindowObserver interface {
	ObserveWindow(ctx context.Context, res WindowResult)
}

type nopObserver struct{}

func (nopObserver) ObserveWindow(context.Context, WindowResult) {}
