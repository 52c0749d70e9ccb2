package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/handleui/ablunit/cmd"
	"github.com/handleui/ablunit/internal/sentry"
	"github.com/handleui/ablunit/internal/signal"
)

func main() {
	os.Exit(run())
}

func run() int {
	cleanup := sentry.Init(cmd.Version)
	defer cleanup()
	defer sentry.RecoverAndPanic()

	if err := cmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			signal.PrintCancellationMessage(os.Stderr, "ablunit")
			return 130
		}
		sentry.CaptureParseError(err)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
