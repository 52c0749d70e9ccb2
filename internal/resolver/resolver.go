// Package resolver maps call-stack frames to original source locations using
// debug listings.
package resolver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/handleui/ablunit/internal/callstack"
	"github.com/handleui/ablunit/internal/listing"
)

// SourceRef is where a frame points in original source.
type SourceRef struct {
	// File is the source or include file as named in the listing.
	File string `json:"file"`
	// Line is one-based.
	Line int `json:"line"`
	// Path is File found on disk, or empty when it is not on the propath.
	Path string `json:"path,omitempty"`
}

// Resolver ties a workspace layout to a listing cache. All fields are
// optional. A nil Resolver, or one without a Cache, imports nothing and
// resolves no frame.
type Resolver struct {
	// Workspace is the project root. Relative paths are taken from it.
	Workspace string
	// ListingsDir holds one debug listing per artifact source path.
	ListingsDir string
	// Propath is searched after Workspace when locating include files.
	Propath []string
	// Framework overrides callstack.DefaultFramework.
	Framework *callstack.Framework
	Cache     *listing.Cache
	Logger    *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r != nil && r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Resolver) abs(p string) string {
	if p == "" {
		p = "."
	}
	if filepath.IsAbs(p) || r.Workspace == "" {
		return p
	}
	return filepath.Join(r.Workspace, p)
}

// IsFramework reports whether an artifact belongs to the test framework.
func (r *Resolver) IsFramework(artifact string) bool {
	if r != nil && r.Framework != nil {
		return r.Framework.Owns(artifact)
	}
	return callstack.IsFrameworkArtifact(artifact)
}

// ListingPath returns the debug listing file for an artifact.
func (r *Resolver) ListingPath(artifact string) string {
	return filepath.Join(r.abs(r.ListingsDir), filepath.FromSlash(callstack.SourcePath(artifact)))
}

// Requests returns one import request per distinct non-framework artifact,
// in first-seen order.
func (r *Resolver) Requests(stack *callstack.Stack) []listing.Request {
	if r == nil || stack == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(stack.Frames))
	var reqs []listing.Request
	for _, f := range stack.Frames {
		if r.IsFramework(f.Artifact) {
			continue
		}
		p := r.ListingPath(f.Artifact)
		key := listing.Key(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		reqs = append(reqs, listing.Request{ListingPath: p, SourcePath: callstack.SourcePath(f.Artifact)})
	}
	return reqs
}

// Prepare imports every listing the stack needs and returns once all of them
// have settled. Import failures are only logged; a frame without a listing
// simply resolves to nothing. The error is non-nil only if ctx ends first.
func (r *Resolver) Prepare(ctx context.Context, stack *callstack.Stack) error {
	if r == nil || r.Cache == nil {
		return nil
	}
	reqs := r.Requests(stack)
	if len(reqs) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			return r.Cache.Import(ctx, req)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, req := range reqs {
		if err := r.Cache.Err(req.ListingPath); err != nil {
			r.logger().Debug("frame resolution unavailable", "source", req.SourcePath, "error", err)
		}
	}
	return nil
}

// Resolve maps a frame to its source location. It never triggers a load;
// call Prepare first. Framework frames and frames without a listing entry
// return nil.
func (r *Resolver) Resolve(f callstack.Frame) *SourceRef {
	if r == nil || r.Cache == nil || r.IsFramework(f.Artifact) {
		return nil
	}
	loc, ok := r.Cache.SourceLine(r.ListingPath(f.Artifact), f.Line())
	if !ok {
		return nil
	}
	return &SourceRef{File: loc.File, Line: loc.Line, Path: r.Find(loc.File)}
}

// Find locates a source or include file in the workspace, then along the
// propath. It returns "" when the file is not found.
func (r *Resolver) Find(name string) string {
	if name == "" {
		return ""
	}
	native := filepath.FromSlash(name)
	if filepath.IsAbs(native) {
		if isFile(native) {
			return native
		}
		return ""
	}

	roots := make([]string, 0, len(r.Propath)+1)
	roots = append(roots, r.abs(""))
	for _, p := range r.Propath {
		roots = append(roots, r.abs(p))
	}
	for _, root := range roots {
		candidate := filepath.Join(root, native)
		if isFile(candidate) {
			return candidate
		}
	}
	return ""
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
