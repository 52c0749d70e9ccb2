package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/handleui/ablunit/internal/listing"
)

var (
	listingSource string
	listingLine   int
	listingFormat string
)

var listingCmd = &cobra.Command{
	Use:   "listing <file>",
	Short: "Show how a debug listing maps compiled lines to source",
	Long: `Parses one debug listing and prints its compiled-line map, or the
source location of a single compiled line with --line.`,
	Example: `  ablunit listing .builder/.ablunit/.listings/src/MyClass.cls --line 42`,
	Args:    cobra.ExactArgs(1),
	RunE:    runListing,
}

func init() {
	listingCmd.Flags().StringVar(&listingSource, "source", "", "name of the compiled file (default: the listing file name)")
	listingCmd.Flags().IntVarP(&listingLine, "line", "l", 0, "compiled line to look up")
	listingCmd.Flags().StringVarP(&listingFormat, "output", "o", formatText, "output format: text, json")
}

func runListing(cmd *cobra.Command, args []string) error {
	if err := validateFormat(listingFormat, formatText, formatJSON); err != nil {
		return err
	}
	source := listingSource
	if source == "" {
		source = args[0]
	}
	l, err := listing.FileLoader{}.Load(cmd.Context(), listing.Request{ListingPath: args[0], SourcePath: source})
	if err != nil {
		return err
	}
	return writeListing(cmd.OutOrStdout(), l, listingLine, listingFormat)
}

func writeListing(w io.Writer, l *listing.Listing, line int, format string) error {
	if line > 0 {
		loc, ok := l.Lookup(line)
		if !ok {
			return fmt.Errorf("compiled line %d is not in the listing (%d lines)", line, l.Len())
		}
		if format == formatJSON {
			return json.NewEncoder(w).Encode(loc)
		}
		_, err := fmt.Fprintf(w, "%s:%d\n", loc.File, loc.Line)
		return err
	}

	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l)
	}
	compiled := make([]int, 0, l.Len())
	for n := range l.Lines {
		compiled = append(compiled, n)
	}
	sort.Ints(compiled)
	for _, n := range compiled {
		loc := l.Lines[n]
		if _, err := fmt.Fprintf(w, "%5d  %s:%d\n", n, loc.File, loc.Line); err != nil {
			return err
		}
	}
	if l.Len() == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "listing has no numbered rows")
	}
	return nil
}
