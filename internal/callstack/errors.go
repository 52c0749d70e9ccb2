package callstack

import (
	"errors"
	"fmt"
)

// ErrUnparseable is wrapped by every ParseError.
var ErrUnparseable = errors.New("unparseable call stack line")

// ParseError reports a call-stack line that matched neither grammar.
// Line is the zero-based index of the line in the input text.
type ParseError struct {
	Line int
	Raw  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse call stack line %d: %q", e.Line+1, e.Raw)
}

// Unwrap lets callers match with errors.Is(err, ErrUnparseable).
func (e *ParseError) Unwrap() error {
	return ErrUnparseable
}
