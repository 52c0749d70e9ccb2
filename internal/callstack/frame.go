package callstack

import "fmt"

// FrameKind identifies which line grammar produced a frame.
type FrameKind uint8

const (
	// KindMethod frames carry a method or internal procedure name.
	KindMethod FrameKind = iota + 1
	// KindProgram frames name only the artifact.
	KindProgram
)

func (k FrameKind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindProgram:
		return "program"
	}
	return "unknown"
}

// Position is a zero-based location inside a compiled artifact.
type Position struct {
	Line int `json:"line"`
}

// Frame is one parsed line of an ABL call stack.
type Frame struct {
	Kind     FrameKind `json:"kind"`
	Method   string    `json:"method,omitempty"` // empty for KindProgram
	Artifact string    `json:"artifact"`
	Pos      Position  `json:"pos"`
	Unit     string    `json:"unit"`
	Raw      string    `json:"raw"`
}

// Line returns the one-based line number as it appeared in the trace.
func (f Frame) Line() int {
	return f.Pos.Line + 1
}

// HasMethod reports whether the frame names a method or procedure.
func (f Frame) HasMethod() bool {
	return f.Kind == KindMethod && f.Method != ""
}

func (f Frame) String() string {
	if f.HasMethod() {
		return fmt.Sprintf("%s %s at line %d", f.Method, f.Artifact, f.Line())
	}
	return fmt.Sprintf("%s at line %d", f.Artifact, f.Line())
}

// Location is a default jump target: an artifact source path plus position.
type Location struct {
	Path string   `json:"path"`
	Pos  Position `json:"pos"`
}

// Stack is a parsed call stack. Frames keep the original top-to-bottom order,
// so index 0 is the innermost call. A Stack is never mutated after Parse.
type Stack struct {
	Frames []Frame `json:"frames"`

	// FirstLocation is the first frame whose artifact source existed when the
	// stack was parsed. Nil when none did.
	FirstLocation *Location `json:"first_location,omitempty"`
}

// Len returns the number of frames.
func (s *Stack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}
