package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/handleui/ablunit/internal/callstack"
	"github.com/handleui/ablunit/internal/output"
)

var parseFormat string

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse an ABL call stack without resolving listings",
	Long: `Parses a call stack into frames and prints them. Reads stdin when no
file is given or the file is "-". The first frame whose source exists in the
workspace is reported as the default location.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "output", "o", formatText, "output format: text, json")
}

func runParse(cmd *cobra.Command, args []string) error {
	if err := validateFormat(parseFormat, formatText, formatJSON); err != nil {
		return err
	}
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}
	raw, err := readInput(cmd.InOrStdin(), name)
	if err != nil {
		return err
	}

	stack, err := callstack.ParseFS(os.DirFS(appConfig.Workspace), raw)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	return writeStack(w, stack, appConfig.Framework, parseFormat, colorFor(w))
}

func writeStack(w io.Writer, stack *callstack.Stack, framework callstack.Framework, format string, color bool) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stack)
	}

	style := func(s string) string {
		if !color {
			return s
		}
		return output.MutedStyle.Render(s)
	}
	for i, f := range stack.Frames {
		marker := "   "
		if i == 0 {
			marker = "-->"
		}
		fw := ""
		if framework.Owns(f.Artifact) {
			fw = style(" [framework]")
		}
		if _, err := fmt.Fprintf(w, "%s %-7s %s%s\n", marker, f.Kind, f, fw); err != nil {
			return err
		}
	}
	if stack.FirstLocation != nil {
		_, err := fmt.Fprintf(w, "\n%s %s:%d\n", style("first location"), stack.FirstLocation.Path, stack.FirstLocation.Pos.Line+1)
		return err
	}
	return nil
}
