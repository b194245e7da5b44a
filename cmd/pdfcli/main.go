// Package main provides the pdfcli command-line interface.
//
// pdfcli is a low-level inspection tool for the lazy PDF reader: it opens a
// file without walking its page tree and prints the raw object graph the
// reader exposes.
//
// Usage:
//
//	pdfcli [command] [flags]
//
// Available Commands:
//
//	dump trailer   Print the file trailer dictionary
//	dump xref      Print the cross-reference table
//	dump object    Print a single indirect object
//	version        Print version information
//
// Use "pdfcli [command] --help" for more information about a command.
package main

import (
	"os"

	"github.com/go-pdfkit/lazypdf/cmd/pdfcli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
