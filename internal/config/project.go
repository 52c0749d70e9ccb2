package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// ProjectFileName is the OpenEdge project descriptor in the workspace root.
const ProjectFileName = "openedge-project.json"

// Project is what ablunit reads from openedge-project.json.
type Project struct {
	OEVersion string
	// Propath lists buildPath entries in declaration order.
	Propath []string
}

// LoadProject reads openedge-project.json from workspace. A missing file
// returns (nil, nil).
func LoadProject(workspace string) (*Project, error) {
	path := filepath.Join(workspace, ProjectFileName)
	data, err := os.ReadFile(path) // #nosec G304 - fixed name inside the workspace
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", ProjectFileName, err)
	}
	return ParseProject(data)
}

// ParseProject extracts the fields ablunit uses. The descriptor allows
// comments, which are removed first.
func ParseProject(data []byte) (*Project, error) {
	clean := stripJSONComments(data)
	if !gjson.ValidBytes(clean) {
		return nil, fmt.Errorf("parsing %s: invalid JSON", ProjectFileName)
	}

	p := &Project{OEVersion: gjson.GetBytes(clean, "oeversion").String()}
	gjson.GetBytes(clean, "buildPath").ForEach(func(_, entry gjson.Result) bool {
		if t := entry.Get("type"); t.Exists() && t.String() != "source" {
			return true
		}
		if path := entry.Get("path").String(); path != "" {
			p.Propath = append(p.Propath, path)
		}
		return true
	})
	return p, nil
}

// stripJSONComments blanks // line and /* block */ comments outside string
// literals. Offsets are kept so parse errors still point at the right place.
func stripJSONComments(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)

	inString := false
	for i := 0; i < len(out); i++ {
		c := out[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for i < len(out) && !(out[i] == '*' && i+1 < len(out) && out[i+1] == '/') {
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i < len(out) {
				out[i], out[i+1] = ' ', ' '
				i++
			}
		}
	}
	return out
}
