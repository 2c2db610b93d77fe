package stream

import (
	"fmt"
	"math"
)

// DefaultMaxEmptyWindows is the number of consecutive windows without new
// features after which the stream is treated as exhausted. Sparse regions have
// real gaps, so a single empty window is not end of data, but there is no
// sequence-length oracle to stop unbounded polling past the end.
const DefaultMaxEmptyWindows = 4

// State is the window tracker state.
type State int

// Tracker states.
const (
	// StateReady means the cursor is valid and the next window may be fetched.
	StateReady State = iota
	// StateFetching means a request for the current window is in flight.
	StateFetching
	// StateExhausted is terminal until the session is reset.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Window is an inclusive coordinate span requested in one fetch.
type Window struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// Cursor tracks the next coordinate to fetch and the consecutive empty-window
// streak, and owns the ready/fetching/exhausted transitions.
type Cursor struct {
	next        int64
	upper       int64
	windowSize  int64
	maxEmpty    int
	emptyStreak int
	state       State
}

// NewCursor positions a cursor at lower. An upper bound of zero means
// unbounded.
func NewCursor(lower, upper, windowSize int64, maxEmpty int) *Cursor {
	if maxEmpty <= 0 {
		maxEmpty = DefaultMaxEmptyWindows
	}

	return &Cursor{
		next:       lower,
		upper:      upper,
		windowSize: windowSize,
		maxEmpty:   maxEmpty,
	}
}

// Next computes the window starting at the cursor. It returns false when the
// window would start past the upper bound.
func (c *Cursor) Next() (Window, bool) {
	w := Window{Start: c.next, End: math.MaxInt64}
	if c.windowSize <= math.MaxInt64-c.next {
		w.End = c.next + c.windowSize
	}

	if c.upper > 0 && w.End > c.upper {
		w.End = c.upper
	}

	return w, w.End >= w.Start
}

// Begin marks a fetch in flight. It returns false unless the cursor is ready.
func (c *Cursor) Begin() bool {
	if c.state != StateReady {
		return false
	}

	c.state = StateFetching

	return true
}

// Complete applies the outcome of a successful fetch of w; fresh is the
// number of features that survived deduplication.
func (c *Cursor) Complete(w Window, fresh int) {
	if fresh > 0 {
		c.emptyStreak = 0
	} else {
		c.emptyStreak++
	}

	// No coordinate follows the last representable one.
	if w.End == math.MaxInt64 {
		c.next = w.End
		c.state = StateExhausted

		return
	}

	c.next = w.End + 1

	switch {
	case c.emptyStreak >= c.maxEmpty:
		c.state = StateExhausted
	case c.upper > 0 && c.next > c.upper:
		c.state = StateExhausted
	default:
		c.state = StateReady
	}
}

// Exhaust moves the cursor to the terminal state.
func (c *Cursor) Exhaust() {
	c.state = StateExhausted
}

// State returns the current state.
func (c *Cursor) State() State { return c.state }

// Position returns the next coordinate to request.
func (c *Cursor) Position() int64 { return c.next }

// EmptyStreak returns the number of consecutive windows without new features.
func (c *Cursor) EmptyStreak() int { return c.emptyStreak }
