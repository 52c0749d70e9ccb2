package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/handleui/ablunit/internal/diagnostic"
)

// TextOpts configures Text.
type TextOpts struct {
	// Color enables ANSI styling.
	Color bool
}

// Text writes d for a terminal. Method names are padded to one column so
// artifacts line up; resolved frames end with their source location.
func Text(w io.Writer, d *diagnostic.Diagnostic, opts TextOpts) error {
	p := palette{color: opts.Color}
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", p.render(ErrorStyle, "✖"), p.render(BoldStyle, d.Message))
	for _, h := range d.Help {
		b.WriteString("\n")
		for _, line := range strings.Split(h, "\n") {
			if line == "" {
				b.WriteString("\n")
				continue
			}
			b.WriteString("  " + p.render(SecondaryStyle, line) + "\n")
		}
	}

	b.WriteString("\n" + p.render(BoldStyle, diagnostic.CallStackHeading) + "\n")

	methodWidth := 0
	for _, f := range d.Frames {
		if mw := runewidth.StringWidth(f.Method); mw > methodWidth {
			methodWidth = mw
		}
	}

	for _, f := range d.Frames {
		marker := "   "
		if f.First {
			marker = p.render(ErrorStyle, "-->")
		}

		method := ""
		if methodWidth > 0 {
			method = runewidth.FillRight(f.Method, methodWidth) + " "
		}
		frame := fmt.Sprintf("%s%s at line %d", method, f.Artifact, f.Line)
		if f.Framework {
			frame = p.render(MutedStyle, frame)
		}

		line := "  " + marker + " " + frame
		if f.Source != nil {
			line += "  " + p.render(MutedStyle, "→") + " " + p.render(AccentStyle, fmt.Sprintf("%s:%d", f.Source.File, f.Source.Line))
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
