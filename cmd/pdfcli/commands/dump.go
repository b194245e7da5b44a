package commands

import (
	"fmt"
	"os"
	"strconv"

	pdf "github.com/go-pdfkit/lazypdf"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print low-level PDF structure",
}

var dumpTrailerCmd = &cobra.Command{
	Use:   "trailer FILE",
	Short: "Print the file trailer dictionary",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpTrailer,
}

var dumpXrefCmd = &cobra.Command{
	Use:   "xref FILE",
	Short: "Print the cross-reference table",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpXref,
}

var dumpObjectCmd = &cobra.Command{
	Use:   "object FILE ID [GEN]",
	Short: "Print a single indirect object",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runDumpObject,
}

func init() {
	dumpCmd.AddCommand(dumpTrailerCmd)
	dumpCmd.AddCommand(dumpXrefCmd)
	dumpCmd.AddCommand(dumpObjectCmd)
}

func openReader(filePath string) (*os.File, *pdf.Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	tried := false
	r, err := pdf.NewReaderEncrypted(f, fi.Size(), func() string {
		if tried || password == "" {
			return ""
		}
		tried = true
		return password
	})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, r, nil
}

func runDumpTrailer(_ *cobra.Command, args []string) error {
	f, r, err := openReader(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	fmt.Println(r.Trailer().String())
	return nil
}

func runDumpXref(_ *cobra.Command, args []string) error {
	f, r, err := openReader(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	for _, e := range r.XrefTable() {
		if e.InStream {
			fmt.Printf("%d %d: in stream %d at position %d\n", e.ID, e.Gen, e.Stream, e.Offset)
		} else {
			fmt.Printf("%d %d: offset %d\n", e.ID, e.Gen, e.Offset)
		}
	}
	return nil
}

func runDumpObject(_ *cobra.Command, args []string) error {
	f, r, err := openReader(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	id, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid object id %q: %w", args[1], err)
	}
	var gen uint64
	if len(args) == 3 {
		gen, err = strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return fmt.Errorf("invalid generation %q: %w", args[2], err)
		}
	}

	v := r.Resolve(uint32(id), uint16(gen))
	if v.IsNull() {
		return fmt.Errorf("object %d %d not found", id, gen)
	}
	fmt.Println(v.String())
	return nil
}
