package listing

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// ErrNoListing is recorded when a loader returns neither a listing nor an error.
var ErrNoListing = errors.New("loader returned no listing")

// State is the lifecycle of one cache key.
type State uint8

const (
	// StateUnloaded means no import was ever requested for the key.
	StateUnloaded State = iota
	// StateLoading means exactly one load is in flight; other importers wait for it.
	StateLoading
	// StateLoaded means the load settled, with a listing or a failure marker.
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	}
	return "unknown"
}

// Request identifies a listing to import.
type Request struct {
	// ListingPath is the debug listing file; its canonical form is the cache key.
	ListingPath string
	// SourcePath names the compiled file for top-level listing rows.
	SourcePath string
}

// Loader produces a listing for a request.
type Loader interface {
	Load(ctx context.Context, req Request) (*Listing, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, req Request) (*Listing, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, req Request) (*Listing, error) {
	return f(ctx, req)
}

type entry struct {
	state   State
	done    chan struct{} // closed when state becomes StateLoaded
	listing *Listing
	err     error // failure marker
}

// Cache holds imported listings keyed by canonical listing path. Each key is
// loaded at most once; concurrent importers of a key that is still loading
// wait for the in-flight load instead of starting another.
//
// A Cache is safe for concurrent use. Entries are never evicted.
type Cache struct {
	loader Loader
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	loads atomic.Int64
}

// NewCache creates a cache backed by loader. A nil logger uses slog.Default().
func NewCache(loader Loader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		loader:  loader,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Key returns the canonical cache key for a listing path.
func Key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Import makes sure the listing for req is loaded, loading it if no other
// import has. Load failures are recorded in the cache and are not returned;
// the only error is ctx.Err() when the caller stops waiting. An abandoned
// load still completes and stays cached.
func (c *Cache) Import(ctx context.Context, req Request) error {
	key := Key(req.ListingPath)

	// check-then-register under a single lock acquisition
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{state: StateLoading, done: make(chan struct{})}
		c.entries[key] = e
	}
	c.mu.Unlock()

	if !ok {
		go c.load(context.WithoutCancel(ctx), key, req, e)
	}

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, key string, req Request, e *entry) {
	c.loads.Add(1)

	listing, err := c.loader.Load(ctx, req)
	if err == nil && listing == nil {
		err = ErrNoListing
	}
	if err != nil {
		listing = nil
		c.logger.Debug("debug listing unavailable", "listing", key, "error", err)
	}

	c.mu.Lock()
	e.listing = listing
	e.err = err
	e.state = StateLoaded
	c.mu.Unlock()
	close(e.done)
}

// State reports the lifecycle state for a listing path.
func (c *Cache) State(path string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[Key(path)]
	if !ok {
		return StateUnloaded
	}
	return e.state
}

// Listing returns the loaded listing for a path. It returns false while the
// key is unloaded or loading, and when the load failed.
func (c *Cache) Listing(path string) (*Listing, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[Key(path)]
	if !ok || e.state != StateLoaded || e.listing == nil {
		return nil, false
	}
	return e.listing, true
}

// Err returns the failure marker recorded for a path, or nil.
func (c *Cache) Err(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[Key(path)]; ok && e.state == StateLoaded {
		return e.err
	}
	return nil
}

// SourceLine looks up the source location of a compiled line. It never
// triggers a load.
func (c *Cache) SourceLine(path string, compiledLine int) (Location, bool) {
	l, ok := c.Listing(path)
	if !ok {
		return Location{}, false
	}
	return l.Lookup(compiledLine)
}

// Loads returns how many times the underlying loader has been invoked.
func (c *Cache) Loads() int64 {
	return c.loads.Load()
}

// Len returns the number of keys in any state other than unloaded.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
