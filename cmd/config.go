package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/handleui/ablunit/internal/config"
	"github.com/handleui/ablunit/internal/output"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved workspace configuration",
	Long: `Shows every setting with where it came from:

  env      ABLUNIT_LISTINGS, ABLUNIT_OEVERSION or DLC
  file     .ablunit.yaml in the workspace
  project  openedge-project.json in the workspace
  default  built-in value`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configCmd.Flags().StringVarP(&configFormat, "output", "o", formatText, "output format: text, json")
}

// configView is the resolved configuration plus the chosen runtime.
type configView struct {
	*config.Config
	DLC *config.DLC `json:"dlc,omitempty"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(configFormat, formatText, formatJSON); err != nil {
		return err
	}
	view := configView{Config: appConfig}
	dlc, err := appConfig.RuntimeResolver(logger).Resolve(appConfig.Workspace, appConfig.OEVersion.Value)
	switch {
	case errors.Is(err, config.ErrNoDLC):
	case err != nil:
		return err
	default:
		view.DLC = &dlc
	}
	w := cmd.OutOrStdout()
	return writeConfig(w, view, configFormat, colorFor(w))
}

func writeConfig(w io.Writer, view configView, format string, color bool) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}
	badge := func(src config.ValueSource) string {
		return style(output.MutedStyle, "["+src.String()+"]")
	}
	row := func(label, value string, src config.ValueSource) {
		if value == "" {
			value = style(output.MutedStyle, "not set")
		}
		_, _ = fmt.Fprintf(w, "  %-12s %-40s %s\n", label, value, badge(src))
	}

	c := view.Config
	_, _ = fmt.Fprintf(w, "%s\n", style(output.SecondaryStyle, "Workspace"))
	_, _ = fmt.Fprintf(w, "  %s\n\n", c.Workspace)

	_, _ = fmt.Fprintf(w, "%s\n", style(output.SecondaryStyle, "Resolution"))
	row("Listings", c.ListingsDir.Value, c.ListingsDir.Source)
	row("Propath", strings.Join(c.Propath.Value, ", "), c.Propath.Source)
	framework := append(append([]string(nil), c.Framework.Prefixes...), c.Framework.Names...)
	_, _ = fmt.Fprintf(w, "  %-12s %s\n", "Framework", strings.Join(framework, ", "))

	_, _ = fmt.Fprintf(w, "\n%s\n", style(output.SecondaryStyle, "Runtime"))
	row("OE version", c.OEVersion.Value, c.OEVersion.Source)
	if view.DLC != nil {
		label := view.DLC.Path
		if view.DLC.Name != "" {
			label = fmt.Sprintf("%s (%s)", view.DLC.Path, view.DLC.Name)
		}
		row("DLC", label, view.DLC.Source)
	} else {
		_, _ = fmt.Fprintf(w, "  %-12s %s\n", "DLC", style(output.WarningStyle, "not configured"))
	}

	_, _ = fmt.Fprintf(w, "\n%s\n", style(output.SecondaryStyle, "Rendering"))
	row("Concurrency", fmt.Sprint(c.Concurrency.Value), c.Concurrency.Source)
	row("Open command", c.OpenCommand.Value, c.OpenCommand.Source)
	return nil
}
