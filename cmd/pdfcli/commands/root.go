// Package commands implements the pdfcli CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version is the application version (set at build time).
	Version = "dev"
	// GitCommit is the git commit hash (set at build time).
	GitCommit = "unknown"

	// Global flags.
	password string
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "pdfcli",
	Short: "pdfcli - inspect the raw structure of a PDF file",
	Long: `pdfcli opens a PDF with the lazy, random-access reader and prints
its cross-reference table, trailer, and individual objects without
interpreting page content.

Examples:
  pdfcli dump trailer report.pdf
  pdfcli dump xref report.pdf
  pdfcli dump object report.pdf 12 0
  pdfcli version`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Password to decrypt the file, if encrypted")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)
}
