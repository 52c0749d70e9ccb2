package signal

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestSetupSignalHandler_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	if ctx.Err() != nil {
		t.Fatal("context cancelled before any signal")
	}
	cancel()
	<-ctx.Done()
}

func TestSetupSignalHandler_Stop(t *testing.T) {
	ctx, stop := SetupSignalHandler(context.Background())
	stop()
	<-ctx.Done()
}

func TestPrintCancellationMessage(t *testing.T) {
	var buf bytes.Buffer
	PrintCancellationMessage(&buf, "render")
	if !strings.Contains(buf.String(), "render cancelled") {
		t.Errorf("output = %q", buf.String())
	}
}
