package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/handleui/ablunit/internal/listing"
)

const currentSchemaVersion = 1

// StoreStats summarises the listing store.
type StoreStats struct {
	Path     string `json:"path"`
	Listings int    `json:"listings"`
	Lines    int64  `json:"lines"`
	Bytes    int64  `json:"bytes"`
}

// ListingStore persists parsed debug listings across runs, keyed by listing
// path and validated by the listing file's content hash.
type ListingStore struct {
	db   *sql.DB
	path string
}

// OpenWorkspaceStore opens the store for a workspace under ~/.ablunit.
func OpenWorkspaceStore(workspace string) (*ListingStore, error) {
	dbPath, err := DatabasePath(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to compute database path: %w", err)
	}
	return OpenListingStore(dbPath)
}

// OpenListingStore opens (creating if needed) the SQLite store at dbPath.
func OpenListingStore(dbPath string) (*ListingStore, error) {
	if err := createDirIfNotExists(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// single connection; the CLI is short-lived and SQLite has one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				return nil, fmt.Errorf("failed to execute %s: %w (additionally, failed to close database: %v)", pragma, err, closeErr)
			}
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	s := &ListingStore{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (additionally, failed to close database: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := secureDBFiles(dbPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}
	return s, nil
}

// secureDBFiles restricts the database and its WAL/SHM files to the owner.
func secureDBFiles(dbPath string) error {
	// #nosec G302 - restrictive permissions
	if err := os.Chmod(dbPath, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", dbPath, err)
	}
	for _, f := range []string{dbPath + "-wal", dbPath + "-shm"} {
		// #nosec G302 - restrictive permissions
		if err := os.Chmod(f, 0o600); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("chmod %s: %w", f, err)
		}
	}
	return nil
}

func (s *ListingStore) initSchema() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	);`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to query schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS listings (
		path TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		source TEXT NOT NULL,
		line_count INTEGER NOT NULL,
		data BLOB NOT NULL,
		imported_at INTEGER NOT NULL
	);`); err != nil {
		return fmt.Errorf("failed to create listings table: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		currentSchemaVersion, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// Get returns the stored listing for path if it was stored with hash.
func (s *ListingStore) Get(path, hash string) (*listing.Listing, bool, error) {
	var (
		storedHash string
		data       []byte
	)
	err := s.db.QueryRow("SELECT content_hash, data FROM listings WHERE path = ?", path).Scan(&storedHash, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query listing: %w", err)
	}
	if storedHash != hash {
		return nil, false, nil
	}

	var l listing.Listing
	if err := msgpack.Unmarshal(data, &l); err != nil {
		return nil, false, fmt.Errorf("failed to decode stored listing: %w", err)
	}
	return &l, true, nil
}

// Put stores l for path, replacing any earlier version.
func (s *ListingStore) Put(path, hash string, l *listing.Listing) error {
	data, err := msgpack.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode listing: %w", err)
	}
	_, err = s.db.Exec(`
	INSERT INTO listings (path, content_hash, source, line_count, data, imported_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		content_hash = excluded.content_hash,
		source = excluded.source,
		line_count = excluded.line_count,
		data = excluded.data,
		imported_at = excluded.imported_at`,
		path, hash, l.Source, l.Len(), data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store listing: %w", err)
	}
	return nil
}

// Stats reports what the store holds.
func (s *ListingStore) Stats() (StoreStats, error) {
	st := StoreStats{Path: s.path}
	err := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(line_count), 0), COALESCE(SUM(LENGTH(data)), 0) FROM listings",
	).Scan(&st.Listings, &st.Lines, &st.Bytes)
	if err != nil {
		return StoreStats{}, fmt.Errorf("failed to query store stats: %w", err)
	}
	return st, nil
}

// Clear removes every stored listing and returns how many were removed.
func (s *ListingStore) Clear() (int64, error) {
	res, err := s.db.Exec("DELETE FROM listings")
	if err != nil {
		return 0, fmt.Errorf("failed to clear listings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared listings: %w", err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *ListingStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *ListingStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
