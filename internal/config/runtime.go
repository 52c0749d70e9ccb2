package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// ErrNoDLC is returned when no OpenEdge runtime can be determined.
var ErrNoDLC = errors.New("unable to determine DLC")

// Runtime is a named OpenEdge installation.
type Runtime struct {
	Name    string `yaml:"name" json:"name"`
	Path    string `yaml:"path" json:"path"`
	Default bool   `yaml:"default,omitempty" json:"default,omitempty"`
}

// DLC is a resolved runtime directory and how it was chosen.
type DLC struct {
	Path   string      `json:"path"`
	Name   string      `json:"name,omitempty"`
	Source ValueSource `json:"source"`
}

// RuntimeResolver picks the OpenEdge runtime for a workspace and remembers
// the answer per workspace. Safe for concurrent use.
type RuntimeResolver struct {
	runtimes []Runtime
	logger   *slog.Logger

	mu    sync.Mutex
	byDir map[string]DLC
}

// NewRuntimeResolver creates a resolver over the configured runtimes.
func NewRuntimeResolver(runtimes []Runtime, logger *slog.Logger) *RuntimeResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuntimeResolver{
		runtimes: runtimes,
		logger:   logger,
		byDir:    make(map[string]DLC),
	}
}

// Resolve returns the DLC for workspace given its OpenEdge version (which may
// be empty). Order: a runtime named exactly oeversion, then the highest
// runtime with the same major.minor, then the default runtime, then $DLC.
func (r *RuntimeResolver) Resolve(workspace, oeversion string) (DLC, error) {
	key := workspace
	if abs, err := filepath.Abs(workspace); err == nil {
		key = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byDir[key]; ok {
		return d, nil
	}

	d, ok := r.match(oeversion)
	if !ok {
		env := os.Getenv(DLCEnv)
		if env == "" {
			return DLC{}, ErrNoDLC
		}
		d = DLC{Path: env, Source: SourceEnv}
	}
	r.logger.Debug("using DLC", "dlc", d.Path, "runtime", d.Name, "source", d.Source.String())
	r.byDir[key] = d
	return d, nil
}

func (r *RuntimeResolver) match(oeversion string) (DLC, bool) {
	if oeversion != "" {
		for _, rt := range r.runtimes {
			if rt.Name == oeversion {
				return DLC{Path: rt.Path, Name: rt.Name, Source: SourceFile}, true
			}
		}
		if rt, ok := r.closest(oeversion); ok {
			return DLC{Path: rt.Path, Name: rt.Name, Source: SourceFile}, true
		}
	}
	for _, rt := range r.runtimes {
		if rt.Default {
			return DLC{Path: rt.Path, Name: rt.Name, Source: SourceFile}, true
		}
	}
	return DLC{}, false
}

// closest finds the newest runtime in the oeversion's major.minor line.
func (r *RuntimeResolver) closest(oeversion string) (Runtime, bool) {
	want, err := semver.NewVersion(oeversion)
	if err != nil {
		return Runtime{}, false
	}
	var (
		best    Runtime
		bestVer *semver.Version
	)
	for _, rt := range r.runtimes {
		v, err := semver.NewVersion(rt.Name)
		if err != nil || v.Major() != want.Major() || v.Minor() != want.Minor() {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = rt, v
		}
	}
	return best, bestVer != nil
}
