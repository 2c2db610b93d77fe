package gff

import (
	"net/url"
	"strconv"
	"strings"
)

// MaxRetainedAttributes caps the number of attributes other than ID and Name
// kept per feature. Attribute-heavy records otherwise dominate memory.
const MaxRetainedAttributes = 12

// ColumnCount is the number of tab-delimited columns in a feature record.
const ColumnCount = 9

// Column indexes.
const (
	colSeqID = iota
	colSource
	colType
	colStart
	colEnd
	colScore
	colStrand
	colPhase
	colAttributes
)

const (
	commentPrefix  = "#"
	fieldSep       = "\t"
	attributeSep   = ";"
	keyValueSep    = "="
	carriageReturn = "\r"
)

// ParseLine decodes one feature record. It returns false for empty lines,
// comment lines, lines with fewer than nine columns, and lines whose start or
// end column is not an integer. Columns past the ninth are ignored. It never
// panics.
func ParseLine(line string) (Feature, bool) {
	line = strings.TrimSuffix(line, carriageReturn)
	if line == "" || strings.HasPrefix(line, commentPrefix) {
		return Feature{}, false
	}

	fields := strings.Split(line, fieldSep)
	if len(fields) < ColumnCount {
		return Feature{}, false
	}

	start, err := strconv.ParseInt(strings.TrimSpace(fields[colStart]), 10, 64)
	if err != nil {
		return Feature{}, false
	}

	end, err := strconv.ParseInt(strings.TrimSpace(fields[colEnd]), 10, 64)
	if err != nil {
		return Feature{}, false
	}

	attrs, count := ParseAttributes(fields[colAttributes])

	return Feature{
		SequenceID:     fields[colSeqID],
		Source:         fields[colSource],
		Type:           fields[colType],
		Start:          start,
		End:            end,
		Score:          optional(fields[colScore]),
		Strand:         optional(fields[colStrand]),
		Phase:          optional(fields[colPhase]),
		Attributes:     attrs,
		AttributeCount: count,
	}, true
}

// ParseAttributes decodes column 9. The returned count includes every
// non-empty segment, retained or not. ID and Name are always retained; other
// keys are retained until MaxRetainedAttributes distinct keys are held.
func ParseAttributes(column string) (Attributes, int) {
	column = strings.TrimSpace(column)
	if column == "" || column == Placeholder {
		return nil, 0
	}

	var (
		attrs    Attributes
		count    int
		retained int
	)

	for _, segment := range strings.Split(column, attributeSep) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		count++

		key, value := splitSegment(segment)
		if key == "" {
			continue
		}

		if i := attrs.index(key); i >= 0 {
			attrs[i].Value = value

			continue
		}

		pinned := key == AttrID || key == AttrName
		if !pinned {
			if retained >= MaxRetainedAttributes {
				continue
			}

			retained++
		}

		attrs = append(attrs, Attribute{Key: key, Value: value})
	}

	return attrs, count
}

// LookupAttribute scans a raw column 9 for key without applying the retention
// cap. Used by range sources that filter on attributes.
func LookupAttribute(column, key string) (string, bool) {
	for _, segment := range strings.Split(column, attributeSep) {
		k, v := splitSegment(strings.TrimSpace(segment))
		if k == key {
			return v, true
		}
	}

	return "", false
}

func splitSegment(segment string) (key, value string) {
	k, v, found := strings.Cut(segment, keyValueSep)
	key = strings.TrimSpace(k)

	if !found {
		return key, ""
	}

	return key, decode(strings.TrimSpace(v))
}

func decode(value string) string {
	if !strings.Contains(value, "%") {
		return value
	}

	decoded, err := url.PathUnescape(value)
	if err != nil {
		return value
	}

	return decoded
}

func optional(field string) string {
	field = strings.TrimSpace(field)
	if field == Placeholder {
		return ""
	}

	return field
}
