package callstack

import (
	"path"
	"strings"
)

// Framework describes artifacts owned by the test runner itself. No debug
// listing exists for them, so they are never resolved to user source.
type Framework struct {
	Prefixes []string `yaml:"prefixes" json:"prefixes"`
	Names    []string `yaml:"names" json:"names"`
}

// DefaultFramework covers the ABLUnit runtime shipped with OpenEdge.
var DefaultFramework = Framework{
	Prefixes: []string{"OpenEdge."},
	Names:    []string{"ABLUnitCore.p"},
}

// Owns reports whether name belongs to the framework namespace.
// A leading "./" is ignored so relative paths match too.
func (f Framework) Owns(name string) bool {
	name = strings.TrimPrefix(name, "./")
	if name == "" {
		return false
	}
	for _, n := range f.Names {
		if name == n {
			return true
		}
	}
	for _, p := range f.Prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Merge returns a framework with the entries of both, f first.
func (f Framework) Merge(other Framework) Framework {
	out := Framework{
		Prefixes: append(append([]string(nil), f.Prefixes...), other.Prefixes...),
		Names:    append(append([]string(nil), f.Names...), other.Names...),
	}
	return out
}

// IsFrameworkArtifact is the predicate used by both import scheduling and
// rendering to skip runner-owned frames.
func IsFrameworkArtifact(name string) bool {
	return DefaultFramework.Owns(name)
}

// sourceExtensions are the ABL file types that appear verbatim in traces.
var sourceExtensions = map[string]struct{}{
	".p":   {},
	".w":   {},
	".cls": {},
	".i":   {},
}

// SourcePath maps an artifact name from a trace to a slash-separated source
// path relative to the workspace. Programs keep their name; dotted class
// names become directories with a .cls suffix.
//
//	procedureTest.p        -> procedureTest.p
//	tests.unit.MyClassTest -> tests/unit/MyClassTest.cls
func SourcePath(artifact string) string {
	artifact = strings.ReplaceAll(artifact, "\\", "/")
	if _, ok := sourceExtensions[strings.ToLower(path.Ext(artifact))]; ok {
		return artifact
	}
	return strings.ReplaceAll(artifact, ".", "/") + ".cls"
}
