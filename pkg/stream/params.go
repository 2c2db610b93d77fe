package stream

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultWindowSize is the span requested per fetch when Params leaves it unset.
const DefaultWindowSize = 100_000

// MaxWindowSize bounds WindowSize. It exceeds the length of any assembled
// sequence while keeping cursor arithmetic far from int64 overflow.
const MaxWindowSize = 1 << 40

// ErrInvalidParams is returned when session parameters are inconsistent.
var ErrInvalidParams = errors.New("invalid stream params")

// Params identifies one streaming session: an annotation, one reference
// sequence, optional coordinate bounds, a window size and categorical filters.
// Changing any of them requires a reset.
type Params struct {
	AnnotationID string  `json:"annotation_id" yaml:"annotation_id"`
	Region       string  `json:"region" yaml:"region"`
	Start        int64   `json:"start,omitempty" yaml:"start,omitempty"`
	End          int64   `json:"end,omitempty" yaml:"end,omitempty"`
	WindowSize   int64   `json:"window_size" yaml:"window_size"`
	Filters      Filters `json:"filters" yaml:"filters"`
}

// Normalize fills defaults and trims identifiers.
func (p Params) Normalize() Params {
	p.AnnotationID = strings.TrimSpace(p.AnnotationID)
	p.Region = strings.TrimSpace(p.Region)

	if p.WindowSize == 0 {
		p.WindowSize = DefaultWindowSize
	}

	return p
}

// Validate checks the parameters. End of zero means no upper bound.
func (p Params) Validate() error {
	if p.Region == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidParams)
	}

	if p.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidParams, p.WindowSize)
	}

	if p.WindowSize > MaxWindowSize {
		return fmt.Errorf("%w: window size %d exceeds %d", ErrInvalidParams, p.WindowSize, int64(MaxWindowSize))
	}

	if p.Start < 0 || p.End < 0 {
		return fmt.Errorf("%w: bounds must not be negative", ErrInvalidParams)
	}

	if p.End > 0 && p.End < p.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidParams, p.End, p.Start)
	}

	return nil
}

func (p Params) request(w Window) RangeRequest {
	return RangeRequest{
		AnnotationID: p.AnnotationID,
		Region:       p.Region,
		Start:        w.Start,
		End:          w.End,
		Filters:      p.Filters,
	}
}
