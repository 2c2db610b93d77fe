// Package gff decodes tab-delimited GFF3 feature records into immutable values.
package gff

import (
	"strconv"
	"strings"
)

// Placeholder is the GFF3 column value that denotes an absent field.
const Placeholder = "."

// Well-known attribute keys.
const (
	AttrID   = "ID"
	AttrName = "Name"
)

// biotypeKeys lists the attribute keys that carry a feature biotype, in lookup order.
var biotypeKeys = []string{"biotype", "gene_biotype", "transcript_biotype"}

// Attribute is a single key/value pair from column 9.
type Attribute struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Attributes is an insertion-ordered attribute mapping.
type Attributes []Attribute

// Get returns the value for key and whether it is present.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}

	return "", false
}

// Len returns the number of retained attributes.
func (a Attributes) Len() int { return len(a) }

// Map returns the attributes as a plain map. Order is lost.
func (a Attributes) Map() map[string]string {
	out := make(map[string]string, len(a))
	for _, attr := range a {
		out[attr.Key] = attr.Value
	}

	return out
}

func (a Attributes) index(key string) int {
	for i, attr := range a {
		if attr.Key == key {
			return i
		}
	}

	return -1
}

// Feature is one parsed annotation record. Coordinates are 1-based and inclusive.
// End >= Start is not enforced; malformed ranges are passed through.
type Feature struct {
	SequenceID     string     `json:"sequence_id" yaml:"sequence_id"`
	Source         string     `json:"source" yaml:"source"`
	Type           string     `json:"type" yaml:"type"`
	Start          int64      `json:"start" yaml:"start"`
	End            int64      `json:"end" yaml:"end"`
	Score          string     `json:"score,omitempty" yaml:"score,omitempty"`
	Strand         string     `json:"strand,omitempty" yaml:"strand,omitempty"`
	Phase          string     `json:"phase,omitempty" yaml:"phase,omitempty"`
	Attributes     Attributes `json:"attributes" yaml:"attributes"`
	AttributeCount int        `json:"attribute_count" yaml:"attribute_count"`
}

// HasScore reports whether the score column was present.
func (f Feature) HasScore() bool { return f.Score != "" }

// HasStrand reports whether the strand column was present.
func (f Feature) HasStrand() bool { return f.Strand != "" }

// HasPhase reports whether the phase column was present.
func (f Feature) HasPhase() bool { return f.Phase != "" }

// Length returns the inclusive span length, or zero for inverted ranges.
func (f Feature) Length() int64 {
	return max(0, f.End-f.Start+1)
}

// DedupeKey returns the composite identity used to recognise the same feature
// returned by different or overlapping windows.
func (f Feature) DedupeKey() string {
	return DedupeKey(f.SequenceID, f.Start, f.End, f.Type)
}

// Identity returns the ID attribute, else Name, else the dedupe key.
func (f Feature) Identity() string {
	if id, ok := f.Attributes.Get(AttrID); ok && id != "" {
		return id
	}

	if name, ok := f.Attributes.Get(AttrName); ok && name != "" {
		return name
	}

	return f.DedupeKey()
}

// Overlaps reports whether the feature intersects the inclusive span [start, end].
func (f Feature) Overlaps(start, end int64) bool {
	return Overlaps(f.Start, f.End, start, end)
}

// Overlaps reports whether a record placed at [recStart, recEnd] intersects
// [start, end]. A record with recEnd < recStart matches only spans covering
// both of its coordinates.
func Overlaps(recStart, recEnd, start, end int64) bool {
	return recStart <= end && recEnd >= start
}

// DedupeKey builds the composite key "seq:start-end:type".
func DedupeKey(sequenceID string, start, end int64, featureType string) string {
	var sb strings.Builder

	sb.Grow(len(sequenceID) + len(featureType) + 24)
	sb.WriteString(sequenceID)
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(start, 10))
	sb.WriteByte('-')
	sb.WriteString(strconv.FormatInt(end, 10))
	sb.WriteByte(':')
	sb.WriteString(featureType)

	return sb.String()
}

// Biotype returns the feature biotype from the first known biotype attribute.
func Biotype(f Feature) string {
	for _, key := range biotypeKeys {
		if v, ok := f.Attributes.Get(key); ok {
			return v
		}
	}

	return ""
}

// LookupBiotype is Biotype over a raw attribute column, ignoring the
// retention cap.
func LookupBiotype(column string) (string, bool) {
	for _, key := range biotypeKeys {
		if v, ok := LookupAttribute(column, key); ok {
			return v, true
		}
	}

	return "", false
}
