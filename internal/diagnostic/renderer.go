package diagnostic

import (
	"context"
	"io/fs"
	"os"

	"github.com/handleui/ablunit/internal/callstack"
	"github.com/handleui/ablunit/internal/catalog"
	"github.com/handleui/ablunit/internal/resolver"
)

// Renderer builds diagnostics. One Renderer, and the listing cache behind
// its Resolver, may serve many concurrent Render calls.
type Renderer struct {
	// Resolver may be nil; frames then carry no source reference.
	Resolver *resolver.Resolver
	// Catalog may be nil; messages then get no extended help.
	Catalog *catalog.Catalog
	// FS is checked for artifact sources when picking the first location.
	// Nil uses the resolver's workspace.
	FS fs.FS
}

func (r *Renderer) sourceFS() fs.FS {
	if r.FS != nil {
		return r.FS
	}
	root := "."
	if r.Resolver != nil && r.Resolver.Workspace != "" {
		root = r.Resolver.Workspace
	}
	return os.DirFS(root)
}

// Render parses rawCallStack, imports the listings it needs and assembles the
// report. An unparseable line fails the whole diagnostic with a
// *callstack.ParseError. Missing listings and catalog entries only leave the
// report less detailed.
func (r *Renderer) Render(ctx context.Context, message, rawCallStack string) (*Diagnostic, error) {
	stack, err := callstack.ParseFS(r.sourceFS(), rawCallStack)
	if err != nil {
		return nil, err
	}

	// all imports settle before any frame is resolved
	if err := r.Resolver.Prepare(ctx, stack); err != nil {
		return nil, err
	}

	d := &Diagnostic{
		Message:       message,
		Frames:        make([]Frame, 0, len(stack.Frames)),
		FirstLocation: stack.FirstLocation,
	}
	if code, ok := catalog.ExtractCode(message); ok {
		d.Code = code
		if entry, ok := r.Catalog.Lookup(code); ok {
			d.Help = entry.Help()
		}
	}

	for i, f := range stack.Frames {
		d.Frames = append(d.Frames, Frame{
			Index:     i,
			First:     i == 0,
			Framework: r.Resolver.IsFramework(f.Artifact),
			Method:    f.Method,
			Artifact:  f.Artifact,
			Line:      f.Line(),
			Unit:      f.Unit,
			Source:    r.Resolver.Resolve(f),
		})
	}
	return d, nil
}
