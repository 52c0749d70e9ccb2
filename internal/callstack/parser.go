package callstack

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	methodPriority  = 90 // one extra leading token, most specific
	programPriority = 50
)

// grammar is one variant of the call-stack line format. Variants are tried in
// descending priority; the first match wins.
type grammar struct {
	kind     FrameKind
	priority int
	pattern  *regexp.Regexp
	build    func(match []string) (Frame, bool)
}

var grammars = sortedGrammars(
	grammar{
		kind:     KindMethod,
		priority: methodPriority,
		pattern:  methodFramePattern,
		build: func(m []string) (Frame, bool) {
			pos, ok := parsePosition(m[3])
			if !ok {
				return Frame{}, false
			}
			return Frame{Kind: KindMethod, Method: m[1], Artifact: m[2], Pos: pos, Unit: m[4]}, true
		},
	},
	grammar{
		kind:     KindProgram,
		priority: programPriority,
		pattern:  programFramePattern,
		build: func(m []string) (Frame, bool) {
			pos, ok := parsePosition(m[2])
			if !ok {
				return Frame{}, false
			}
			return Frame{Kind: KindProgram, Artifact: m[1], Pos: pos, Unit: m[3]}, true
		},
	},
)

func sortedGrammars(gs ...grammar) []grammar {
	sort.SliceStable(gs, func(i, j int) bool {
		return gs[i].priority > gs[j].priority
	})
	return gs
}

// parsePosition converts a one-based textual line number to the zero-based
// Position. This is the only place the offset is applied.
func parsePosition(s string) (Position, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return Position{}, false
	}
	return Position{Line: n - 1}, true
}

// ParseLine parses a single call-stack line. The returned error is a
// *ParseError with Line set to 0; Parse fills in the real index.
func ParseLine(raw string) (Frame, error) {
	frame, ok := parseLine(raw)
	if !ok {
		return Frame{}, &ParseError{Raw: raw}
	}
	return frame, nil
}

func parseLine(raw string) (Frame, bool) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Frame{}, false
	}
	for _, g := range grammars {
		match := g.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		frame, ok := g.build(match)
		if !ok {
			continue
		}
		frame.Raw = raw
		return frame, true
	}
	return Frame{}, false
}

// Parse parses a full call stack and checks artifact existence relative to
// the current working directory.
func Parse(text string) (*Stack, error) {
	return ParseFS(os.DirFS("."), text)
}

// ParseFS parses a full call stack. Line endings are normalised and trailing
// blank lines dropped. Any malformed line aborts the whole parse so frame
// indices always match input line numbers.
//
// FirstLocation is computed here, once, by statting each frame's source path
// in fsys in order and stopping at the first hit.
func ParseFS(fsys fs.FS, text string) (*Stack, error) {
	lines := splitLines(text)
	stack := &Stack{Frames: make([]Frame, 0, len(lines))}

	for i, raw := range lines {
		frame, ok := parseLine(raw)
		if !ok {
			return nil, &ParseError{Line: i, Raw: raw}
		}
		stack.Frames = append(stack.Frames, frame)
	}

	if fsys == nil {
		return stack, nil
	}
	for _, frame := range stack.Frames {
		p := SourcePath(frame.Artifact)
		if !exists(fsys, p) {
			continue
		}
		stack.FirstLocation = &Location{Path: p, Pos: frame.Pos}
		break
	}
	return stack, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimRight(text, " \t\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// exists stats workspace-relative names in fsys and absolute names, which
// fs.FS cannot express, on the host file system.
func exists(fsys fs.FS, name string) bool {
	if native := filepath.FromSlash(name); filepath.IsAbs(native) {
		info, err := os.Stat(native)
		return err == nil && !info.IsDir()
	}
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
