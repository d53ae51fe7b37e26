// Package cmd implements the CLI commands for pocketmagstopdf using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pocketmagstopdf",
	Short: "pocketmagstopdf — download pocketmags magazines as PDF",
	Long: `pocketmagstopdf downloads a magazine issue from the pocketmags CDN,
identified by the URL of a single page image from the HTML5 reader,
and assembles it into one PDF.

PLEASE USE THIS TOOL RESPONSIBLY. The magazine publishing industry relies
heavily on income from sales with very slim profit margins.

Page image URLs can be found in the HTML5 reader by right-clicking a page
and selecting "inspect element". Look for URLs of the form:

  https://mcdatastore.blob.core.windows.net/mcmags/<uuid>/<uuid>/mid/0025.jpg

Usage:
  pocketmagstopdf download <pdf> <url> [flags]`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
