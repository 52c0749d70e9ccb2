package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/nightlyone/lockfile"
)

const (
	// CacheFileName is the JSON catalog written next to other ablunit state.
	CacheFileName = "promsgs.json"

	msgdataGlob = "prohelp/msgdata/msg*"
)

// Options controls where Load finds the catalog.
type Options struct {
	// DLC is the OpenEdge install directory. Empty means no runtime is known.
	DLC string
	// CacheDir holds promsgs.json. Empty disables the cache.
	CacheDir string
	Logger   *slog.Logger
}

// Load returns the message catalog. A readable cache wins; otherwise msgdata
// files under DLC are parsed and the cache is refreshed. Without DLC or
// msgdata the catalog is empty, which only means no extended help.
func Load(ctx context.Context, opts Options) (*Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cachePath := ""
	if opts.CacheDir != "" {
		cachePath = filepath.Join(opts.CacheDir, CacheFileName)
		entries, err := ReadCache(cachePath)
		switch {
		case err == nil:
			logger.Debug("message catalog loaded from cache", "path", cachePath, "entries", len(entries))
			return New(entries), nil
		case errors.Is(err, fs.ErrNotExist):
		default:
			logger.Warn("ignoring unreadable message catalog cache", "path", cachePath, "error", err)
		}
	}

	if opts.DLC == "" {
		return New(nil), nil
	}

	entries, err := LoadMsgdata(ctx, os.DirFS(opts.DLC))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		logger.Debug("no msgdata found", "dlc", opts.DLC)
		return New(nil), nil
	}

	if cachePath != "" {
		if err := WriteCache(cachePath, entries); err != nil {
			logger.Warn("failed to write message catalog cache", "path", cachePath, "error", err)
		}
	}
	return New(entries), nil
}

// LoadMsgdata parses every prohelp/msgdata/msg* file in dlc, in lexical order.
func LoadMsgdata(ctx context.Context, dlc fs.FS) ([]Entry, error) {
	matches, err := doublestar.Glob(dlc, msgdataGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("finding msgdata: %w", err)
	}

	var entries []Entry
	for _, name := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := dlc.Open(name)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		parsed, err := ParseMsgdata(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		entries = append(entries, parsed...)
	}
	return entries, nil
}

// ReadCache reads a promsgs.json file.
func ReadCache(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is the configured cache location
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return entries, nil
}

// WriteCache writes entries to path. Writers in other processes are excluded
// with a lock file; if the lock is busy the write is skipped, since the
// holder is producing the same content.
func WriteCache(path string, entries []Entry) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving cache path: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	lock, err := lockfile.New(abs + ".lock")
	if err != nil {
		return fmt.Errorf("creating cache lock: %w", err)
	}
	if err := lock.TryLock(); err != nil {
		if errors.Is(err, lockfile.ErrBusy) {
			return nil
		}
		return fmt.Errorf("locking cache: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".promsgs-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing catalog: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing catalog: %w", err)
	}
	return nil
}
