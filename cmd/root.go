package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/handleui/ablunit/internal/config"
	"github.com/handleui/ablunit/internal/logging"
	"github.com/handleui/ablunit/internal/signal"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	brandingColor = "42"  // green
	commandColor  = "15"  // white
	contextColor  = "241" // gray
)

var (
	workspaceDir string
	logLevel     string
	logJSON      bool
	noColor      bool
)

var (
	// loaded in PersistentPreRunE
	appConfig *config.Config
	logger    *slog.Logger
)

var (
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	brandingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(brandingColor))
	commandStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(commandColor))
	contextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(contextColor))
)

var rootCmd = &cobra.Command{
	Use:   "ablunit",
	Short: "Map ABLUnit failure call stacks back to source",
	Long: `ablunit turns the call stack of a failed ABLUnit test into a source-mapped
diagnostic. Each frame is resolved through the debug listing the compiler wrote
for its artifact, so lines inside include files point at the include itself.
Messages that end in an OpenEdge message number are expanded with the help text
from the message catalog of the configured runtime.

Configuration is read from .ablunit.yaml and openedge-project.json in the
workspace, with ABLUNIT_LISTINGS, ABLUNIT_OEVERSION, ABLUNIT_HOME and DLC
overrides from the environment.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, err := logging.New(os.Stderr, logging.Options{Level: logLevel, JSON: logJSON})
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)

		ws, err := filepath.Abs(workspaceDir)
		if err != nil {
			return fmt.Errorf("resolving workspace: %w", err)
		}

		if isTerminal(os.Stderr) && !logJSON {
			_, _ = fmt.Fprintf(os.Stderr, "%s %s\n",
				brandingStyle.Render(fmt.Sprintf("ablunit v%s", Version)),
				commandStyle.Render(cmd.Name()))
			_, _ = fmt.Fprintf(os.Stderr, "%s\n\n", contextStyle.Render("└─ "+ws))
		}

		cfg, cfgErr := config.Load(ws)
		if cfgErr != nil {
			printWarning(os.Stderr, fmt.Sprintf("Config error: %v", cfgErr))
			_, _ = fmt.Fprintf(os.Stderr, "  %s\n\n", contextStyle.Render("continuing with defaults"))
			cfg = config.Defaults(ws)
		}
		appConfig = cfg
		return nil
	},
}

// Execute runs the root command with signal handling.
func Execute() error {
	ctx, stop := signal.SetupSignalHandler(context.Background())
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(listingCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "C", ".", "workspace root")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetHelpTemplate(fmt.Sprintf(`%s
{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}{{if or .Runnable .HasSubCommands}}{{.UsageString}}{{end}}`, brandingStyle.Render(fmt.Sprintf("ablunit v%s", Version))))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// useColor reports whether styled output should be written to f.
func useColor(f *os.File) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(f)
}

// colorFor reports whether styled output should be written to w. Only a
// terminal *os.File gets color.
func colorFor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && useColor(f)
}

func printWarning(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", warnStyle.Render("⚠"), contextStyle.Render(msg))
}
