// Package main provides the entry point for the gffstream CLI tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gffstream/cmd/gffstream/commands"
	"github.com/Sumatoshi-tech/gffstream/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gffstream",
		Short: "gffstream - windowed GFF3 feature streaming",
		Long: `gffstream walks the features of a GFF3 annotation one reference sequence at
a time, in fixed-size coordinate windows, the way a scrolling genome view
loads them.

Commands:
  stream      Stream one sequence window by window
  sequences   List the sequences of a file
  parse       Parse records to JSON lines`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewStreamCommand())
	rootCmd.AddCommand(commands.NewSequencesCommand())
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gffstream %s\n", version.String())
		},
	}
}
