package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/handleui/ablunit/internal/callstack"
	"github.com/handleui/ablunit/internal/diagnostic"
	"github.com/handleui/ablunit/internal/output"
	"github.com/handleui/ablunit/internal/persistence"
	"github.com/handleui/ablunit/internal/sentry"
)

const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

var (
	renderMessage     string
	renderCallStack   string
	renderFailures    string
	renderFormat      string
	renderConcurrency int
	renderCommand     string
	renderNoStore     bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a failed test's call stack as a source-mapped diagnostic",
	Long: `Renders one failure (--message and --callstack) or a batch of failures
(--failures, one JSON object per line with "test", "message" and "callstack").

Frames are resolved through the debug listings in the listings directory.
A frame whose listing is missing is still shown, without a source link.
An unparseable call stack line fails that failure's diagnostic.`,
	Example: `  ablunit render -m "** Customer already exists. (132)" --callstack stack.txt
  ablunit render --failures failures.jsonl -o json
  pbpaste | ablunit render -m "Expected: 1 but was: 2" -o markdown`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderMessage, "message", "m", "", "failure message")
	renderCmd.Flags().StringVarP(&renderCallStack, "callstack", "s", "-", "call stack file, or - for stdin")
	renderCmd.Flags().StringVar(&renderFailures, "failures", "", "JSONL file of failure records")
	renderCmd.Flags().StringVarP(&renderFormat, "output", "o", formatText, "output format: text, markdown, json")
	renderCmd.Flags().IntVar(&renderConcurrency, "concurrency", 0, "parallel renders in batch mode (default from config)")
	renderCmd.Flags().StringVar(&renderCommand, "command", "", "editor command for Markdown links (default from config)")
	renderCmd.Flags().BoolVar(&renderNoStore, "no-store", false, "do not use the persistent listing store")
}

func validateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q: must be one of %s", format, strings.Join(allowed, ", "))
}

func runRender(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(renderFormat, formatText, formatMarkdown, formatJSON); err != nil {
		return err
	}
	ctx := cmd.Context()

	s, err := newSession(ctx, appConfig, logger, sessionOptions{useStore: !renderNoStore, loadCatalog: true})
	if err != nil {
		return err
	}
	defer s.Close()

	if renderFailures != "" {
		return renderBatch(ctx, s, cmd.OutOrStdout())
	}

	raw, err := readInput(cmd.InOrStdin(), renderCallStack)
	if err != nil {
		return err
	}
	d, err := s.renderer().Render(ctx, renderMessage, raw)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("rendering diagnostic: %w", err)
	}
	return writeDiagnostic(cmd.OutOrStdout(), d, renderFormat)
}

func renderBatch(ctx context.Context, s *session, w io.Writer) error {
	records, err := persistence.ReadFailuresFile(renderFailures)
	if err != nil {
		return err
	}

	limit := renderConcurrency
	if limit <= 0 {
		limit = s.cfg.Concurrency.Value
	}

	results := make([]output.Result, len(records))
	r := s.renderer()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			results[i].Test = rec.Test
			d, err := r.Render(gctx, rec.Message, rec.CallStack)
			if err != nil {
				var perr *callstack.ParseError
				if !errors.As(err, &perr) {
					return err
				}
				sentry.CaptureParseError(err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].Diagnostic = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if renderFormat == formatJSON {
		return output.JSONAll(w, results)
	}
	for i, res := range results {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		if err := writeResultHeader(w, res, i); err != nil {
			return err
		}
		if res.Error != "" {
			_, _ = fmt.Fprintf(w, "%s\n", res.Error)
			continue
		}
		if err := writeDiagnostic(w, res.Diagnostic, renderFormat); err != nil {
			return err
		}
	}
	return nil
}

func writeResultHeader(w io.Writer, res output.Result, i int) error {
	name := res.Test
	if name == "" {
		name = fmt.Sprintf("failure %d", i+1)
	}
	var err error
	if renderFormat == formatMarkdown {
		_, err = fmt.Fprintf(w, "### %s\n\n", name)
	} else {
		header := "── " + name + " ──"
		if colorFor(w) {
			header = brandingStyle.Render(header)
		}
		_, err = fmt.Fprintf(w, "%s\n", header)
	}
	return err
}

func writeDiagnostic(w io.Writer, d *diagnostic.Diagnostic, format string) error {
	switch format {
	case formatJSON:
		return output.JSON(w, d)
	case formatMarkdown:
		command := renderCommand
		if command == "" {
			command = appConfig.OpenCommand.Value
		}
		return output.Markdown(w, d, output.MarkdownOpts{Command: command})
	default:
		return output.Text(w, d, output.TextOpts{Color: colorFor(w)})
	}
}

// readInput reads name, or stdin when name is "-".
func readInput(stdin io.Reader, name string) (string, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name) // #nosec G304 - path supplied on the command line
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}
	return string(data), nil
}
