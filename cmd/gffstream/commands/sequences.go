package commands

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gffstream/pkg/gffsource"
)

// NewSequencesCommand creates the sequences command, which lists the
// sequences a file can be streamed on.
func NewSequencesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sequences <file>",
		Short: "List the sequences of a GFF3 file with their record counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validateFormat(format)
			if err != nil {
				return err
			}

			src, err := gffsource.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			inv := inventoryOf(src)

			switch format {
			case FormatJSON:
				return renderJSON(cmd.OutOrStdout(), inv)
			case FormatYAML:
				return renderYAML(cmd.OutOrStdout(), inv)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), inventoryTable(inv))

				return nil
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", FormatTable, "Output format: table, json, yaml")

	return cmd
}

type sequenceCount struct {
	ID      string `json:"id" yaml:"id"`
	Records int    `json:"records" yaml:"records"`
}

type inventory struct {
	AnnotationID string          `json:"annotation_id" yaml:"annotation_id"`
	Compressed   bool            `json:"compressed" yaml:"compressed"`
	Skipped      int             `json:"skipped_lines" yaml:"skipped_lines"`
	Sequences    []sequenceCount `json:"sequences" yaml:"sequences"`
}

func inventoryOf(src *gffsource.File) inventory {
	inv := inventory{
		AnnotationID: src.AnnotationID(),
		Compressed:   src.Compressed(),
		Skipped:      src.Skipped(),
	}

	for _, id := range src.Sequences() {
		inv.Sequences = append(inv.Sequences, sequenceCount{ID: id, Records: src.Records(id)})
	}

	return inv
}

func inventoryTable(inv inventory) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.SetTitle(inv.AnnotationID)
	tbl.AppendHeader(table.Row{"Sequence", "Records"})

	total := 0

	for _, seq := range inv.Sequences {
		tbl.AppendRow(table.Row{seq.ID, strconv.Itoa(seq.Records)})
		total += seq.Records
	}

	tbl.AppendFooter(table.Row{"Total", strconv.Itoa(total)})

	return tbl.Render()
}
