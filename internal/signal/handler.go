package signal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
)

var cancelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. Call
// stop to release the signal registration.
func SetupSignalHandler(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// PrintCancellationMessage tells the user a command was interrupted.
func PrintCancellationMessage(w io.Writer, commandName string) {
	_, _ = fmt.Fprintf(w, "\n%s\n", cancelStyle.Render(commandName+" cancelled"))
}
