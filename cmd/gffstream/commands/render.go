package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
	"github.com/Sumatoshi-tech/gffstream/pkg/stream"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

const yamlIndent = 2

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

func validateFormat(format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q (want table, json or yaml)", ErrUnknownFormat, format)
	}
}

func render(w io.Writer, format string, snap stream.Snapshot) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, snap)
	case FormatYAML:
		return renderYAML(w, snap)
	default:
		renderTable(w, snap)

		return nil
	}
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}

func renderTable(w io.Writer, snap stream.Snapshot) {
	fmt.Fprintln(w, featureTable(snap.Features))
	fmt.Fprintln(w)
	fmt.Fprintln(w, summaryTable(snap))
}

func featureTable(features []gff.Feature) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Seq", "Source", "Type", "Start", "End", "Strand", "ID", "Biotype", "Attrs"})

	for _, f := range features {
		tbl.AppendRow(table.Row{
			f.SequenceID,
			f.Source,
			f.Type,
			humanize.Comma(f.Start),
			humanize.Comma(f.End),
			dash(f.Strand),
			f.Identity(),
			dash(gff.Biotype(f)),
			strconv.Itoa(f.AttributeCount),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d features", len(features))})

	return tbl.Render()
}

func summaryTable(snap stream.Snapshot) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	lastShown := "-"
	if snap.LastWindowShown != nil {
		lastShown = humanize.Comma(snap.LastWindowShown.Start) + " - " + humanize.Comma(snap.LastWindowShown.End)
	}

	tbl.AppendRows([]table.Row{
		{"Session", snap.SessionID},
		{"Annotation", snap.Params.AnnotationID},
		{"Region", snap.Params.Region},
		{"Windows fetched", snap.WindowsFetched},
		{"Cursor", humanize.Comma(snap.Cursor)},
		{"Last window shown", lastShown},
		{"Distinct features seen", snap.KeysSeen},
		{"Dropped lines", snap.DroppedLines},
	})

	return tbl.Render()
}

// printOutcome writes the one-line session outcome.
func printOutcome(w io.Writer, snap stream.Snapshot, noColor bool) {
	var (
		c   *color.Color
		msg string
	)

	switch snap.Outcome() {
	case stream.OutcomeRegionNotFound:
		c, msg = color.New(color.FgYellow), "region not found: "+snap.RegionError
	case stream.OutcomeFailed:
		c, msg = color.New(color.FgRed), "request failed: "+snap.LastError
	case stream.OutcomeEndOfData:
		c, msg = color.New(color.FgGreen), "reached end of data"
	default:
		c, msg = color.New(color.FgCyan), "more data available from "+humanize.Comma(snap.Cursor)
	}

	if noColor {
		c.DisableColor()
	}

	c.Fprintln(w, msg)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
