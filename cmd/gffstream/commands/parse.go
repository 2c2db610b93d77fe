package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gffstream/pkg/gff"
	"github.com/Sumatoshi-tech/gffstream/pkg/gffsource"
)

const stdinPath = "-"

// ParseCommand holds the flags of the parse command.
type ParseCommand struct {
	limit int
	quiet bool
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	pc := &ParseCommand{}

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse GFF3 records and print them as JSON lines",
		Long: `Parse every record of a GFF3 file (plain or gzip, "-" for stdin) with the
same rules the stream command applies, printing one JSON object per feature.
Lines that are not well-formed records are counted and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: pc.run,
	}

	cmd.Flags().IntVar(&pc.limit, "limit", 0, "Stop after this many features (0 = no limit)")
	cmd.Flags().BoolVarP(&pc.quiet, "quiet", "q", false, "Do not report dropped lines")

	return cmd
}

func (pc *ParseCommand) run(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()

	if args[0] != stdinPath {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer file.Close()

		in = file
	}

	rc, err := gffsource.NewReader(in)
	if err != nil {
		return err
	}
	defer rc.Close()

	count, dropped, err := pc.emit(cmd.OutOrStdout(), rc)
	if err != nil {
		return err
	}

	fmt.Fprintf(writerOrDiscard(cmd.ErrOrStderr(), !pc.quiet), "parsed %d features, dropped %d lines\n", count, dropped)

	return nil
}

func (pc *ParseCommand) emit(w io.Writer, r io.Reader) (count, dropped int, err error) {
	enc := json.NewEncoder(w)
	sc := gff.NewScanner(r)

	for sc.Scan() {
		err = enc.Encode(sc.Feature())
		if err != nil {
			return count, sc.Dropped(), fmt.Errorf("encode feature: %w", err)
		}

		count++
		if pc.limit > 0 && count >= pc.limit {
			break
		}
	}

	err = sc.Err()
	if err != nil {
		return count, sc.Dropped(), fmt.Errorf("read input: %w", err)
	}

	return count, sc.Dropped(), nil
}
