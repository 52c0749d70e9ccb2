package persistence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	ablunitDirName = ".ablunit"
	workspacesDir  = "workspaces"
	catalogDir     = "catalog"

	// HomeEnv overrides ~/.ablunit.
	HomeEnv = "ABLUNIT_HOME"
)

var (
	cachedHomeDir   string
	cachedHomeDirMu sync.RWMutex
)

// GetAblunitDir returns the global state directory (~/.ablunit), or
// $ABLUNIT_HOME when set. Safe for concurrent use.
func GetAblunitDir() (string, error) {
	// override is checked on every call so tests can change it
	if override := os.Getenv(HomeEnv); override != "" {
		return filepath.Clean(override), nil
	}

	cachedHomeDirMu.RLock()
	cached := cachedHomeDir
	cachedHomeDirMu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	cachedHomeDirMu.Lock()
	defer cachedHomeDirMu.Unlock()
	if cachedHomeDir != "" {
		return cachedHomeDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	cachedHomeDir = filepath.Join(home, ablunitDirName)
	return cachedHomeDir, nil
}

// WorkspaceID returns a stable short identifier for a workspace directory.
func WorkspaceID(workspace string) (string, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	return hashToID(abs), nil
}

// hashToID returns the first 20 hex characters (80 bits) of a SHA256 hash.
func hashToID(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])[:20]
}

// DatabasePath returns ~/.ablunit/workspaces/<id>.db for a workspace.
func DatabasePath(workspace string) (string, error) {
	dir, err := GetAblunitDir()
	if err != nil {
		return "", err
	}
	id, err := WorkspaceID(workspace)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, workspacesDir, id+".db"), nil
}

// CatalogCacheDir returns the message catalog cache directory for an
// OpenEdge install. Each install gets its own directory.
func CatalogCacheDir(dlc string) (string, error) {
	dir, err := GetAblunitDir()
	if err != nil {
		return "", err
	}
	id := "none"
	if dlc != "" {
		if abs, err := filepath.Abs(dlc); err == nil {
			dlc = abs
		}
		id = hashToID(dlc)
	}
	return filepath.Join(dir, catalogDir, id), nil
}

func createDirIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// #nosec G301 - owner-only state directory
		return os.MkdirAll(path, 0o700)
	}
	return nil
}
