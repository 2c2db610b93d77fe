package stream

import "github.com/Sumatoshi-tech/gffstream/pkg/gff"

// Outcome summarises why a session stopped, if it did.
type Outcome string

// Session outcomes.
const (
	OutcomeActive         Outcome = "active"
	OutcomeEndOfData      Outcome = "end_of_data"
	OutcomeRegionNotFound Outcome = "region_not_found"
	OutcomeFailed         Outcome = "failed"
)

// Snapshot is the observable state of a Driver at one instant.
type Snapshot struct {
	SessionID         string        `json:"session_id" yaml:"session_id"`
	Generation        uint64        `json:"generation" yaml:"generation"`
	Params            Params        `json:"params" yaml:"params"`
	Features          []gff.Feature `json:"features" yaml:"features"`
	Cursor            int64         `json:"cursor" yaml:"cursor"`
	State             State         `json:"state" yaml:"state"`
	Exhausted         bool          `json:"exhausted" yaml:"exhausted"`
	LastWindowShown   *Window       `json:"last_window_shown,omitempty" yaml:"last_window_shown,omitempty"`
	RegionError       string        `json:"region_error,omitempty" yaml:"region_error,omitempty"`
	LastError         string        `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	EmptyWindowStreak int           `json:"empty_window_streak" yaml:"empty_window_streak"`
	WindowsFetched    int           `json:"windows_fetched" yaml:"windows_fetched"`
	DroppedLines      int           `json:"dropped_lines" yaml:"dropped_lines"`
	KeysSeen          int           `json:"keys_seen" yaml:"keys_seen"`
}

// Outcome classifies the session for consumers that render different
// messages for a missing region, natural end of data, and failures.
func (s Snapshot) Outcome() Outcome {
	switch {
	case s.RegionError != "":
		return OutcomeRegionNotFound
	case s.LastError != "":
		return OutcomeFailed
	case s.Exhausted:
		return OutcomeEndOfData
	default:
		return OutcomeActive
	}
}
