package stream

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Trigger is the surface a trigger source drives.
type Trigger interface {
	FetchNextWindow(ctx context.Context) error
	Snapshot() Snapshot
}

// PumpConfig paces a Pump.
type PumpConfig struct {
	// Interval is the minimum spacing between fetches. Zero disables pacing.
	Interval time.Duration

	// Burst is the number of fetches allowed back to back. Defaults to 1.
	Burst int

	// MaxWindows stops the pump after this many fetches. Zero means until
	// the session is exhausted.
	MaxWindows int

	// OnWindow, when set, receives the snapshot after every fetch.
	OnWindow func(Snapshot)
}

// Pump stands in for a scroll-proximity trigger: it calls FetchNextWindow
// repeatedly, paced by a token bucket, until the session is exhausted,
// MaxWindows fetches ran, ctx ends, or a fetch fails. It returns the last
// snapshot. Pump expects to be the only trigger for t while it runs.
func Pump(ctx context.Context, t Trigger, cfg PumpConfig) (Snapshot, error) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Interval), max(cfg.Burst, 1))
	}

	snap := t.Snapshot()

	for steps := 0; cfg.MaxWindows <= 0 || steps < cfg.MaxWindows; steps++ {
		if snap.Exhausted {
			break
		}

		err := limiter.Wait(ctx)
		if err != nil {
			return snap, fmt.Errorf("pump wait: %w", err)
		}

		fetchErr := t.FetchNextWindow(ctx)
		snap = t.Snapshot()

		if cfg.OnWindow != nil {
			cfg.OnWindow(snap)
		}

		if fetchErr != nil {
			return snap, fetchErr
		}
	}

	return snap, nil
}
