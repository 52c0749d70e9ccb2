// Package diagnostic turns a failed test's message and call stack into a
// source-mapped report.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/handleui/ablunit/internal/callstack"
	"github.com/handleui/ablunit/internal/resolver"
)

// CallStackHeading introduces the frame list in every rendering.
const CallStackHeading = "ABL Call Stack"

// SourceRef is a resolved jump target for a frame.
type SourceRef = resolver.SourceRef

// Frame is one rendered call-stack line.
type Frame struct {
	Index     int    `json:"index"`
	First     bool   `json:"first,omitempty"`
	Framework bool   `json:"framework,omitempty"`
	Method    string `json:"method,omitempty"`
	Artifact  string `json:"artifact"`
	// Line is the one-based line from the trace.
	Line   int        `json:"line"`
	Unit   string     `json:"unit"`
	Source *SourceRef `json:"source,omitempty"`
}

// Label is the frame as the runner printed it, without the unit.
func (f Frame) Label() string {
	if f.Method != "" {
		return fmt.Sprintf("%s %s at line %d", f.Method, f.Artifact, f.Line)
	}
	return fmt.Sprintf("%s at line %d", f.Artifact, f.Line)
}

// Diagnostic is the structured report for one failure. Frames are in the
// order of the raw call stack, one per line, innermost first.
type Diagnostic struct {
	Message       string              `json:"message"`
	Code          int                 `json:"code,omitempty"`
	Help          []string            `json:"help,omitempty"`
	Frames        []Frame             `json:"frames"`
	FirstLocation *callstack.Location `json:"first_location,omitempty"`
}

// Resolved counts frames that carry a source reference.
func (d *Diagnostic) Resolved() int {
	n := 0
	for _, f := range d.Frames {
		if f.Source != nil {
			n++
		}
	}
	return n
}

// String renders the plain-text report body.
func (d *Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(d.Message)
	for _, h := range d.Help {
		b.WriteString("\n\n")
		b.WriteString(h)
	}
	b.WriteString("\n\n")
	b.WriteString(CallStackHeading)
	b.WriteString("\n\n")
	for _, f := range d.Frames {
		if f.First {
			b.WriteString("--> ")
		} else {
			b.WriteString("    ")
		}
		b.WriteString(f.Label())
		if f.Source != nil {
			fmt.Fprintf(&b, " (%s:%d)", f.Source.File, f.Source.Line)
		}
		b.WriteString("\n")
	}
	return b.String()
}
