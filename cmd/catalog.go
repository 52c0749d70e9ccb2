package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handleui/ablunit/internal/catalog"
	"github.com/handleui/ablunit/internal/output"
)

var catalogFormat string

var catalogCmd = &cobra.Command{
	Use:   "catalog <code>",
	Short: "Look up an OpenEdge message number",
	Long: `Prints the message catalog entry for a message number. The catalog is
read from the resolved runtime's prohelp/msgdata files and cached per runtime.
The code may also be a full message ending in "(NNN)".`,
	Example: `  ablunit catalog 132
  ablunit catalog "** Customer already exists with 1. (132)"`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogFormat, "output", "o", formatText, "output format: text, json")
}

func parseCode(arg string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil && n > 0 {
		return n, nil
	}
	if n, ok := catalog.ExtractCode(arg); ok {
		return n, nil
	}
	return 0, fmt.Errorf("%q is not a message number", arg)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if err := validateFormat(catalogFormat, formatText, formatJSON); err != nil {
		return err
	}
	code, err := parseCode(args[0])
	if err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), appConfig, logger, sessionOptions{loadCatalog: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.dlc.Path == "" && s.catalog.Len() == 0 {
		printWarning(os.Stderr, "No OpenEdge runtime configured; set DLC or add runtimes to .ablunit.yaml")
	}

	entry, ok := s.catalog.Lookup(code)
	if !ok {
		return fmt.Errorf("message %d not found in catalog (%d entries)", code, s.catalog.Len())
	}

	w := cmd.OutOrStdout()
	if catalogFormat == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}
	title := fmt.Sprintf("(%d) %s", entry.Code, entry.Short())
	if colorFor(w) {
		title = output.BoldStyle.Render(title)
	}
	_, _ = fmt.Fprintln(w, title)
	for _, h := range entry.Help() {
		_, _ = fmt.Fprintf(w, "\n%s\n", h)
	}
	return nil
}
