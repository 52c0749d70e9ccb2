package output

import (
	"encoding/json"
	"io"

	"github.com/handleui/ablunit/internal/diagnostic"
)

// Result is one rendered failure in a batch.
type Result struct {
	Test       string                 `json:"test,omitempty"`
	Diagnostic *diagnostic.Diagnostic `json:"diagnostic,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// JSON writes a single diagnostic as indented JSON.
func JSON(w io.Writer, d *diagnostic.Diagnostic) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(d)
}

// JSONAll writes batch results as an indented JSON array.
func JSONAll(w io.Writer, results []Result) error {
	if results == nil {
		results = []Result{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}
