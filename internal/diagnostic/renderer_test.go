package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/handleui/ablunit/internal/callstack"
	"github.com/handleui/ablunit/internal/catalog"
	"github.com/handleui/ablunit/internal/listing"
	"github.com/handleui/ablunit/internal/resolver"
)

// fakeListings serves listings by source path and counts loads.
type fakeListings struct {
	byPath map[string]*listing.Listing
	loads  atomic.Int32
}

func (f *fakeListings) Load(_ context.Context, req listing.Request) (*listing.Listing, error) {
	f.loads.Add(1)
	if l, ok := f.byPath[req.SourcePath]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("no listing for %s", req.SourcePath)
}

func newRenderer(t *testing.T, listings map[string]*listing.Listing, cat *catalog.Catalog) (*Renderer, *fakeListings) {
	t.Helper()
	fake := &fakeListings{byPath: listings}
	return &Renderer{
		Resolver: &resolver.Resolver{
			Workspace:   t.TempDir(),
			ListingsDir: "listings",
			Cache:       listing.NewCache(fake, nil),
		},
		Catalog: cat,
		FS:      fstest.MapFS{},
	}, fake
}

func myClassListing() map[string]*listing.Listing {
	return map[string]*listing.Listing{
		"MyClass.cls": {
			Source: "MyClass.cls",
			Lines:  map[int]listing.Location{42: {File: "include.i", Line: 10}},
		},
	}
}

func TestRender_SingleMethodFrame(t *testing.T) {
	r, _ := newRenderer(t, myClassListing(), nil)

	d, err := r.Render(context.Background(), "Expected: 1 but was: 2", "myMethod MyClass.cls at line 42  (MyClass.r)")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(d.Frames) != 1 {
		t.Fatalf("Frames = %d, want 1", len(d.Frames))
	}
	f := d.Frames[0]
	if !f.First || f.Method != "myMethod" || f.Artifact != "MyClass.cls" || f.Line != 42 || f.Unit != "MyClass.r" {
		t.Errorf("frame = %+v", f)
	}
	if f.Source == nil || f.Source.File != "include.i" || f.Source.Line != 10 {
		t.Errorf("Source = %+v, want include.i:10", f.Source)
	}
	if d.Code != 0 || d.Help != nil {
		t.Errorf("Code/Help = %d/%q, want none", d.Code, d.Help)
	}
}

func TestRender_FrameworkFrameNotImported(t *testing.T) {
	r, fake := newRenderer(t, nil, nil)

	d, err := r.Render(context.Background(), "boom", "ABLUnitCore.p at line 79  (ABLUnitCore.r)")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if fake.loads.Load() != 0 {
		t.Errorf("loads = %d, want 0 for framework frame", fake.loads.Load())
	}
	f := d.Frames[0]
	if f.Method != "" || f.Artifact != "ABLUnitCore.p" || f.Line != 79 || f.Unit != "ABLUnitCore.r" {
		t.Errorf("frame = %+v", f)
	}
	if !f.Framework || f.Source != nil {
		t.Errorf("Framework/Source = %v/%+v", f.Framework, f.Source)
	}
}

func TestRender_CatalogHelp(t *testing.T) {
	cat := catalog.New([]catalog.Entry{{
		Code: 132,
		Text: []string{
			"** %1 already exists with %2. (132)",
			`A unique index already holds this value.\nChoose another.`,
			"Check the key fields.",
		},
	}})
	r, _ := newRenderer(t, nil, cat)

	d, err := r.Render(context.Background(), "** Customer already exists with 1. (132)", "run.p at line 3  (run.r)")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if d.Code != 132 {
		t.Errorf("Code = %d, want 132", d.Code)
	}
	want := []string{"A unique index already holds this value.\n\nChoose another.", "Check the key fields."}
	if len(d.Help) != 2 || d.Help[0] != want[0] || d.Help[1] != want[1] {
		t.Errorf("Help = %q, want %q", d.Help, want)
	}

	body := d.String()
	if strings.Contains(body, "already exists with %2") {
		t.Error("first catalog segment should not be repeated")
	}
	if !strings.Contains(body, "(132)\n\nA unique index already holds this value.\n\nChoose another.\n\nCheck the key fields.\n\n"+CallStackHeading) {
		t.Errorf("String() =\n%s", body)
	}
}

func TestRender_PartialResolution(t *testing.T) {
	r, _ := newRenderer(t, myClassListing(), nil)

	raw := "myMethod MyClass.cls at line 42  (MyClass.r)\nrun Other.p at line 5  (Other.r)"
	d, err := r.Render(context.Background(), "failed", raw)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(d.Frames) != 2 {
		t.Fatalf("Frames = %d, want 2", len(d.Frames))
	}
	if d.Frames[0].Source == nil || d.Frames[0].Source.File != "include.i" {
		t.Errorf("frame 0 Source = %+v", d.Frames[0].Source)
	}
	if d.Frames[1].Source != nil {
		t.Errorf("frame 1 Source = %+v, want nil for missing listing", d.Frames[1].Source)
	}
	if d.Frames[1].First {
		t.Error("only the first frame is marked")
	}
	if d.Resolved() != 1 {
		t.Errorf("Resolved() = %d, want 1", d.Resolved())
	}

	want := "failed\n\n" + CallStackHeading + "\n\n" +
		"--> myMethod MyClass.cls at line 42 (include.i:10)\n" +
		"    run Other.p at line 5\n"
	if got := d.String(); got != want {
		t.Errorf("String() =\n%q\nwant\n%q", got, want)
	}
}

func TestRender_OrderPreserved(t *testing.T) {
	r, _ := newRenderer(t, myClassListing(), nil)
	lines := []string{
		"c MyClass.cls at line 42  (MyClass.r)",
		"RunTests OpenEdge.ABLUnit.Runner.ABLRunner at line 149  (OpenEdge/ABLUnit/Runner/ABLRunner.r)",
		"b MyClass.cls at line 42  (MyClass.r)",
		"a.p at line 1  (a.r)",
		"ABLUnitCore.p at line 79  (ABLUnitCore.r)",
	}
	d, err := r.Render(context.Background(), "m", strings.Join(lines, "\n"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(d.Frames) != len(lines) {
		t.Fatalf("Frames = %d, want %d", len(d.Frames), len(lines))
	}
	wantArtifacts := []string{"MyClass.cls", "OpenEdge.ABLUnit.Runner.ABLRunner", "MyClass.cls", "a.p", "ABLUnitCore.p"}
	for i, f := range d.Frames {
		if f.Index != i || f.Artifact != wantArtifacts[i] {
			t.Errorf("frame %d = %+v, want artifact %s", i, f, wantArtifacts[i])
		}
	}
}

func TestRender_ParseErrorAborts(t *testing.T) {
	r, fake := newRenderer(t, myClassListing(), nil)
	_, err := r.Render(context.Background(), "m", "myMethod MyClass.cls at line 42  (MyClass.r)\nthis is not a frame")

	var perr *callstack.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Render() error = %v, want *callstack.ParseError", err)
	}
	if perr.Line != 1 || perr.Raw != "this is not a frame" {
		t.Errorf("ParseError = %+v", perr)
	}
	if fake.loads.Load() != 0 {
		t.Error("no listing should be imported for an unparseable stack")
	}
}

func TestRender_FirstLocation(t *testing.T) {
	r, _ := newRenderer(t, nil, nil)
	r.FS = fstest.MapFS{"src/app.p": {Data: []byte("DISPLAY 1.")}}

	d, err := r.Render(context.Background(), "m", "missing.p at line 2  (missing.r)\nsrc/app.p at line 7  (src/app.r)")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if d.FirstLocation == nil || d.FirstLocation.Path != "src/app.p" || d.FirstLocation.Pos.Line != 6 {
		t.Errorf("FirstLocation = %+v", d.FirstLocation)
	}
}

func TestRender_ConcurrentShareOneLoad(t *testing.T) {
	r, fake := newRenderer(t, myClassListing(), nil)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := r.Render(context.Background(), "m", "t MyClass.cls at line 42  (MyClass.r)")
			if err == nil && d.Frames[0].Source == nil {
				err = errors.New("frame not resolved")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Render() error = %v", err)
		}
	}
	if fake.loads.Load() != 1 {
		t.Errorf("loads = %d, want 1", fake.loads.Load())
	}
}

func TestRender_WithoutResolverOrCatalog(t *testing.T) {
	r := &Renderer{FS: fstest.MapFS{}}
	raw := "myMethod MyClass.cls at line 42  (MyClass.r)\nABLUnitCore.p at line 79  (ABLUnitCore.r)"

	d, err := r.Render(context.Background(), "** Customer already exists with 1. (132)", raw)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(d.Frames) != 2 {
		t.Fatalf("len(Frames) = %d, want 2", len(d.Frames))
	}
	if d.Resolved() != 0 {
		t.Errorf("Resolved() = %d, want 0", d.Resolved())
	}
	if !d.Frames[1].Framework {
		t.Error("ABLUnitCore.p frame not marked as framework")
	}
	if d.Code != 132 || d.Help != nil {
		t.Errorf("Code = %d, Help = %q, want 132 and no help", d.Code, d.Help)
	}
}
