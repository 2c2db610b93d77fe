// Package gffsource serves feature range queries from a local GFF3 file.
//
// Plain files are indexed once on open: every placeable record goes into a
// per-sequence interval tree keyed by its coordinates, and queries read the
// matching records back with positioned reads. Gzip and bgzip files cannot be
// read at arbitrary offsets without a tabix index, so they are scanned from
// the start on every query; only the sequence inventory is built up front.
package gffsource

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/Sumatoshi-tech/gffstream/pkg/alg/interval"
	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

const (
	// ctxCheckEvery is how many lines a sequential scan reads between
	// context checks.
	ctxCheckEvery = 4096

	// coalesceGap is the largest gap between two matching records that is
	// still read in a single positioned read.
	coalesceGap = 64 << 10
)

var gzipMagic = []byte{0x1f, 0x8b}

// ErrEmptySource is returned by Open when the file holds no placeable records.
var ErrEmptySource = errors.New("no feature records")

// Option configures a File.
type Option func(*File)

// WithAnnotationID names the annotation the file serves. Requests naming a
// different annotation get stream.ErrRegionNotFound. Defaults to the file's
// base name.
func WithAnnotationID(id string) Option {
	return func(f *File) {
		if id != "" {
			f.annotation = id
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

type record struct {
	offset int64
	length int
	start  int64
	end    int64
}

type sequenceInfo struct {
	records int
	sorted  bool
	lastPos int64
}

// File is a stream.RangeQuerier over one GFF3 file. It is safe for
// concurrent use.
type File struct {
	path       string
	annotation string
	logger     *slog.Logger
	compressed bool

	file      *os.File
	index     map[string]*interval.Tree[int64, record]
	sequences map[string]*sequenceInfo
	lastSeq   string
	skipped   int
}

var _ stream.RangeQuerier = (*File)(nil)

// Open inspects path and prepares it for range queries.
func Open(path string, opts ...Option) (*File, error) {
	f := &File{
		path:       path,
		annotation: filepath.Base(path),
		logger:     slog.Default(),
		sequences:  make(map[string]*sequenceInfo),
	}

	for _, opt := range opts {
		opt(f)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}

	br := bufio.NewReader(file)

	magic, _ := br.Peek(len(gzipMagic))
	f.compressed = bytes.Equal(magic, gzipMagic)

	if f.compressed {
		err = f.inventory(br)

		closeErr := file.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close source: %w", closeErr)
		}
	} else {
		f.file = file
		f.index = make(map[string]*interval.Tree[int64, record])
		err = f.buildIndex(br)

		if err != nil {
			file.Close()
		}
	}

	if err != nil {
		return nil, err
	}

	if len(f.sequences) == 0 {
		f.Close()

		return nil, fmt.Errorf("open source %s: %w", path, ErrEmptySource)
	}

	f.logger.Debug("gff source opened",
		"path", path,
		"annotation", f.annotation,
		"compressed", f.compressed,
		"sequences", len(f.sequences),
		"skipped_lines", f.skipped,
	)

	return f, nil
}

// AnnotationID returns the annotation the file serves.
func (f *File) AnnotationID() string { return f.annotation }

// Compressed reports whether the file is gzip or bgzip compressed.
func (f *File) Compressed() bool { return f.compressed }

// Skipped returns the number of record lines that could not be placed on a
// coordinate and are never served.
func (f *File) Skipped() int { return f.skipped }

// Sequences returns the sequence IDs present in the file, sorted.
func (f *File) Sequences() []string {
	ids := make([]string, 0, len(f.sequences))
	for id := range f.sequences {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Records returns the number of served records on sequence.
func (f *File) Records(sequence string) int {
	if info, ok := f.sequences[sequence]; ok {
		return info.records
	}

	return 0
}

// Close releases the file handle.
func (f *File) Close() error {
	if f.file == nil {
		return nil
	}

	err := f.file.Close()
	if err != nil {
		return fmt.Errorf("close source: %w", err)
	}

	return nil
}

// QueryRange returns the records on req.Region overlapping [req.Start,
// req.End] that pass req.Filters, one per line in file order.
func (f *File) QueryRange(ctx context.Context, req stream.RangeRequest) (string, error) {
	if req.AnnotationID != "" && req.AnnotationID != f.annotation {
		return "", fmt.Errorf("annotation %q: %w", req.AnnotationID, stream.ErrRegionNotFound)
	}

	info, ok := f.sequences[req.Region]
	if !ok {
		return "", fmt.Errorf("sequence %q: %w", req.Region, stream.ErrRegionNotFound)
	}

	if f.compressed {
		return f.scan(ctx, req, info)
	}

	return f.lookup(ctx, req)
}

func (f *File) buildIndex(br *bufio.Reader) error {
	var offset int64

	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			line := strings.TrimRight(raw, "\r\n")

			if seq, start, end, ok := locate(line); ok {
				f.note(seq, start)

				tree, exists := f.index[seq]
				if !exists {
					tree = interval.New[int64, record]()
					f.index[seq] = tree
				}

				// Reversed records are indexed over the span they touch and
				// filtered with gff.Overlaps on lookup, like the gzip scan.
				tree.Insert(min(start, end), max(start, end), record{
					offset: offset,
					length: len(line),
					start:  start,
					end:    end,
				})
			} else if gff.IsRecordLine(line) {
				f.skipped++
			}

			offset += int64(len(raw))
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("index source: %w", err)
		}
	}
}

func (f *File) inventory(r io.Reader) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip source: %w", err)
	}
	defer zr.Close()

	sc := gff.NewScanner(zr)
	for sc.Scan() {
		feature := sc.Feature()
		f.note(feature.SequenceID, feature.Start)
	}

	f.skipped = sc.Dropped()

	return sc.Err()
}

// note tracks per-sequence record counts and whether a sequence's records
// arrive as one contiguous block sorted by start.
func (f *File) note(seq string, start int64) {
	defer func() { f.lastSeq = seq }()

	info, ok := f.sequences[seq]
	if !ok {
		f.sequences[seq] = &sequenceInfo{records: 1, sorted: true, lastPos: start}

		return
	}

	if start < info.lastPos || seq != f.lastSeq {
		info.sorted = false
	}

	info.records++
	info.lastPos = start
}

func (f *File) lookup(ctx context.Context, req stream.RangeRequest) (string, error) {
	var hits []record

	f.index[req.Region].VisitOverlap(req.Start, req.End, func(iv interval.Interval[int64, record]) bool {
		if gff.Overlaps(iv.Value.start, iv.Value.end, req.Start, req.End) {
			hits = append(hits, iv.Value)
		}

		return true
	})

	if len(hits) == 0 {
		return "", nil
	}

	slices.SortFunc(hits, func(a, b record) int { return cmp.Compare(a.offset, b.offset) })

	var out strings.Builder

	for _, run := range coalesce(hits) {
		err := ctx.Err()
		if err != nil {
			return "", fmt.Errorf("query %s: %w", req.Region, err)
		}

		buf := make([]byte, run.end-run.start)

		_, err = f.file.ReadAt(buf, run.start)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read %s: %w", req.Region, err)
		}

		for _, rec := range run.records {
			rel := rec.offset - run.start
			line := string(buf[rel : rel+int64(rec.length)])

			if matches(line, req.Filters) {
				out.WriteString(line)
				out.WriteByte('\n')
			}
		}
	}

	return out.String(), nil
}

type readRun struct {
	start, end int64
	records    []record
}

// coalesce groups offset-sorted records into runs that are cheaper to read
// with one positioned read each.
func coalesce(hits []record) []readRun {
	var runs []readRun

	for _, rec := range hits {
		recEnd := rec.offset + int64(rec.length)

		if n := len(runs); n > 0 && rec.offset-runs[n-1].end <= coalesceGap {
			runs[n-1].end = max(runs[n-1].end, recEnd)
			runs[n-1].records = append(runs[n-1].records, rec)

			continue
		}

		runs = append(runs, readRun{start: rec.offset, end: recEnd, records: []record{rec}})
	}

	return runs
}

func (f *File) scan(ctx context.Context, req stream.RangeRequest, info *sequenceInfo) (string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(bufio.NewReader(file))
	if err != nil {
		return "", fmt.Errorf("open gzip source: %w", err)
	}
	defer zr.Close()

	var (
		out     strings.Builder
		inBlock bool
		lines   int
	)

	sc := gff.NewScanner(zr)
	for sc.Scan() {
		lines++
		if lines%ctxCheckEvery == 0 {
			err = ctx.Err()
			if err != nil {
				return "", fmt.Errorf("query %s: %w", req.Region, err)
			}
		}

		feature := sc.Feature()
		if feature.SequenceID != req.Region {
			if inBlock && info.sorted {
				break
			}

			continue
		}

		inBlock = true

		if info.sorted && feature.Start > req.End {
			break
		}

		if feature.Overlaps(req.Start, req.End) && matches(sc.Line(), req.Filters) {
			out.WriteString(sc.Line())
			out.WriteByte('\n')
		}
	}

	err = sc.Err()
	if err != nil {
		return "", fmt.Errorf("query %s: %w", req.Region, err)
	}

	return out.String(), nil
}

// locate extracts the placement of a record line without decoding its
// attributes.
func locate(line string) (seq string, start, end int64, ok bool) {
	if !gff.IsRecordLine(line) || strings.Count(line, "\t") < gff.ColumnCount-1 {
		return "", 0, 0, false
	}

	feature, parsed := gff.ParseLine(stripAttributes(line))
	if !parsed {
		return "", 0, 0, false
	}

	return feature.SequenceID, feature.Start, feature.End, true
}

// stripAttributes blanks column 9 and anything after it so placement parsing
// skips attribute decoding.
func stripAttributes(line string) string {
	end := 0

	for range gff.ColumnCount - 1 {
		idx := strings.IndexByte(line[end:], '\t')
		if idx < 0 {
			return line
		}

		end += idx + 1
	}

	return line[:end]
}

// matches applies the categorical filters to a raw record line.
func matches(line string, filters stream.Filters) bool {
	if filters.IsZero() {
		return true
	}

	cols := strings.Split(line, "\t")
	if len(cols) < gff.ColumnCount {
		return false
	}

	if filters.Source != "" && strings.TrimSpace(cols[1]) != filters.Source {
		return false
	}

	if filters.Type != "" && strings.TrimSpace(cols[2]) != filters.Type {
		return false
	}

	if filters.Biotype != "" {
		biotype, ok := gff.LookupBiotype(cols[gff.ColumnCount-1])
		if !ok || biotype != filters.Biotype {
			return false
		}
	}

	return true
}
