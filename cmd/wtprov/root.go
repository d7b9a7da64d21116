package main

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "wtprov",
	Short: "wtprov - wikitext source provenance for Parsoid HTML",
	Long: `wtprov annotates Parsoid HTML with the wikitext ranges each element came from.
It computes data-parsoid DSR offsets, encapsulates transclusion output into
single editable units and reconciles annotation ranges with the DOM.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
