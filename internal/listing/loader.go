package listing

import (
	"context"
	"fmt"
	"os"
)

// FileLoader reads and parses listing files from disk.
type FileLoader struct{}

// Load opens req.ListingPath and parses it.
func (FileLoader) Load(ctx context.Context, req Request) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(req.ListingPath) // #nosec G304 - listing path comes from the configured listings directory
	if err != nil {
		return nil, fmt.Errorf("opening debug listing: %w", err)
	}
	defer func() { _ = f.Close() }()

	l, err := Parse(f, req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", req.ListingPath, err)
	}
	return l, nil
}

var _ Loader = FileLoader{}
