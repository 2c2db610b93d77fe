package gff

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds a single record. Long attribute columns on transcript
// records exceed bufio's 64 KiB default.
const maxLineBytes = 4 << 20

// Scanner reads feature records from a stream, skipping comments and blank
// lines and counting records that fail to parse.
type Scanner struct {
	sc      *bufio.Scanner
	feature Feature
	line    string
	dropped int
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	return &Scanner{sc: sc}
}

// Scan advances to the next parsed feature. It returns false at end of input
// or on a read error; call Err to distinguish.
func (s *Scanner) Scan() bool {
	for s.sc.Scan() {
		line := s.sc.Text()

		feature, ok := ParseLine(line)
		if !ok {
			if IsRecordLine(line) {
				s.dropped++
			}

			continue
		}

		s.feature = feature
		s.line = line

		return true
	}

	return false
}

// Feature returns the most recently scanned feature.
func (s *Scanner) Feature() Feature { return s.feature }

// Line returns the raw text of the most recently scanned feature.
func (s *Scanner) Line() string { return s.line }

// Dropped returns the number of malformed record lines skipped so far.
func (s *Scanner) Dropped() int { return s.dropped }

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error {
	err := s.sc.Err()
	if err != nil {
		return fmt.Errorf("scan features: %w", err)
	}

	return nil
}

// IsRecordLine reports whether line is neither blank nor a comment, i.e.
// whether a parse failure on it counts as a dropped record.
func IsRecordLine(line string) bool {
	line = strings.TrimSuffix(line, carriageReturn)

	return line != "" && !strings.HasPrefix(line, commentPrefix)
}
