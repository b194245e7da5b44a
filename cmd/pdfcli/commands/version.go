package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version and build information about pdfcli.`,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("pdfcli %s\n", Version)
		fmt.Printf("  Go:      %s\n", runtime.Version())
		fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		if GitCommit != "unknown" && GitCommit != "" {
			fmt.Printf("  Commit:  %s\n", GitCommit)
		}
	},
}
