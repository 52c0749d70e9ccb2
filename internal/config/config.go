// Package config resolves workspace settings from .ablunit.yaml,
// openedge-project.json and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/handleui/ablunit/internal/callstack"
)

const (
	// FileName is the per-workspace config file.
	FileName = ".ablunit.yaml"

	// DefaultListingsDir is where the test runner writes debug listings,
	// relative to the workspace.
	DefaultListingsDir = ".builder/.ablunit/.listings"
	// DefaultConcurrency bounds parallel renders in batch mode.
	DefaultConcurrency = 4
	// DefaultOpenCommand is the editor command used in Markdown links.
	DefaultOpenCommand = "_ablunit.openStackTrace"

	// ListingsEnv overrides the listings directory.
	ListingsEnv = "ABLUNIT_LISTINGS"
	// OEVersionEnv overrides the OpenEdge version.
	OEVersionEnv = "ABLUNIT_OEVERSION"
	// DLCEnv is the conventional OpenEdge install directory variable.
	DLCEnv = "DLC"

	maxConfigSizeBytes = 1 * 1024 * 1024
	maxConcurrency     = 64
)

// ValueSource indicates where a configuration value originated.
type ValueSource int

// Value sources, lowest precedence first.
const (
	SourceDefault ValueSource = iota
	SourceProject             // openedge-project.json
	SourceFile                // .ablunit.yaml
	SourceEnv
)

// String returns the display name for a value source.
func (s ValueSource) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceProject:
		return "project"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "env"
	}
	return "unknown"
}

// MarshalText renders the source name in JSON and YAML output.
func (s ValueSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Value holds a resolved value with its source.
type Value[T any] struct {
	Value  T           `json:"value"`
	Source ValueSource `json:"source"`
}

// File is the on-disk shape of .ablunit.yaml.
type File struct {
	ListingsDir string              `yaml:"listings_dir"`
	Propath     []string            `yaml:"propath"`
	OEVersion   string              `yaml:"oeversion"`
	Runtimes    []Runtime           `yaml:"runtimes"`
	Framework   callstack.Framework `yaml:"framework"`
	Concurrency int                 `yaml:"concurrency"`
	OpenCommand string              `yaml:"open_command"`
}

// Config is the resolved workspace configuration.
type Config struct {
	Workspace   string          `json:"workspace"`
	ListingsDir Value[string]   `json:"listings_dir"`
	Propath     Value[[]string] `json:"propath"`
	OEVersion   Value[string]   `json:"oeversion"`
	Concurrency Value[int]      `json:"concurrency"`
	OpenCommand Value[string]   `json:"open_command"`
	Runtimes    []Runtime       `json:"runtimes,omitempty"`

	// Framework is the built-in framework namespace plus any configured additions.
	Framework callstack.Framework `json:"framework"`
}

// validateContent rejects binary or oversized config files before parsing.
func validateContent(data []byte) error {
	if len(data) > maxConfigSizeBytes {
		return fmt.Errorf("config file exceeds maximum size of %d bytes", maxConfigSizeBytes)
	}
	if bytes.Contains(data, []byte{0x00}) {
		return errors.New("config file contains null bytes (binary content not allowed)")
	}
	controlCount := 0
	for _, b := range data {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			controlCount++
		}
	}
	if controlCount > 10 {
		return fmt.Errorf("config file contains excessive control characters (%d found)", controlCount)
	}
	return nil
}

// ReadFile parses .ablunit.yaml from workspace. A missing file yields an
// empty File.
func ReadFile(workspace string) (*File, error) {
	path := filepath.Join(workspace, FileName)
	data, err := os.ReadFile(path) // #nosec G304 - fixed name inside the workspace
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	if err := validateContent(data); err != nil {
		return nil, err
	}
	var f File
	if len(bytes.TrimSpace(data)) == 0 {
		return &f, nil
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &f, nil
}

// Load resolves configuration for workspace. Precedence, highest first:
// environment, .ablunit.yaml, openedge-project.json, defaults.
func Load(workspace string) (*Config, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}

	file, err := ReadFile(abs)
	if err != nil {
		return nil, err
	}
	project, err := LoadProject(abs)
	if err != nil {
		return nil, err
	}
	return merge(abs, file, project), nil
}

// Defaults returns the configuration used when the workspace files cannot be
// read. Environment overrides still apply.
func Defaults(workspace string) *Config {
	return merge(workspace, nil, nil)
}

func merge(workspace string, file *File, project *Project) *Config {
	c := &Config{
		Workspace:   workspace,
		ListingsDir: Value[string]{Value: DefaultListingsDir, Source: SourceDefault},
		Propath:     Value[[]string]{Value: nil, Source: SourceDefault},
		OEVersion:   Value[string]{Value: "", Source: SourceDefault},
		Concurrency: Value[int]{Value: DefaultConcurrency, Source: SourceDefault},
		OpenCommand: Value[string]{Value: DefaultOpenCommand, Source: SourceDefault},
		Framework:   callstack.DefaultFramework,
	}

	if project != nil {
		if project.OEVersion != "" {
			c.OEVersion = Value[string]{Value: project.OEVersion, Source: SourceProject}
		}
		if len(project.Propath) > 0 {
			c.Propath = Value[[]string]{Value: project.Propath, Source: SourceProject}
		}
	}

	if file != nil {
		if file.ListingsDir != "" {
			c.ListingsDir = Value[string]{Value: file.ListingsDir, Source: SourceFile}
		}
		if len(file.Propath) > 0 {
			c.Propath = Value[[]string]{Value: file.Propath, Source: SourceFile}
		}
		if file.OEVersion != "" {
			c.OEVersion = Value[string]{Value: file.OEVersion, Source: SourceFile}
		}
		if file.Concurrency != 0 {
			c.Concurrency = Value[int]{Value: clampConcurrency(file.Concurrency), Source: SourceFile}
		}
		if file.OpenCommand != "" {
			c.OpenCommand = Value[string]{Value: file.OpenCommand, Source: SourceFile}
		}
		c.Runtimes = file.Runtimes
		c.Framework = callstack.DefaultFramework.Merge(file.Framework)
	}

	if env := os.Getenv(ListingsEnv); env != "" {
		c.ListingsDir = Value[string]{Value: env, Source: SourceEnv}
	}
	if env := os.Getenv(OEVersionEnv); env != "" {
		c.OEVersion = Value[string]{Value: env, Source: SourceEnv}
	}
	return c
}

func clampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxConcurrency {
		return maxConcurrency
	}
	return n
}

// ListingsPath returns the listings directory as an absolute path.
func (c *Config) ListingsPath() string {
	if filepath.IsAbs(c.ListingsDir.Value) {
		return c.ListingsDir.Value
	}
	return filepath.Join(c.Workspace, c.ListingsDir.Value)
}

// RuntimeResolver returns a resolver over the configured runtimes.
func (c *Config) RuntimeResolver(logger *slog.Logger) *RuntimeResolver {
	return NewRuntimeResolver(c.Runtimes, logger)
}
