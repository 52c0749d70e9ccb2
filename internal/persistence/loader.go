package persistence

import (
	"context"
	"log/slog"

	"github.com/handleui/ablunit/internal/listing"
)

// StoreLoader serves listings from a ListingStore when the listing file is
// unchanged, and otherwise parses it with Next and stores the result.
type StoreLoader struct {
	Store  *ListingStore
	Next   listing.Loader
	Logger *slog.Logger
}

// Load implements listing.Loader.
func (s StoreLoader) Load(ctx context.Context, req listing.Request) (*listing.Listing, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hash, err := ComputeFileHash(req.ListingPath)
	if err != nil {
		return nil, err
	}
	key := listing.Key(req.ListingPath)

	if l, ok, err := s.Store.Get(key, hash); err != nil {
		logger.Warn("listing store read failed", "listing", key, "error", err)
	} else if ok && l.Source == req.SourcePath {
		logger.Debug("listing served from store", "listing", key)
		return l, nil
	}

	l, err := s.Next.Load(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Put(key, hash, l); err != nil {
		logger.Warn("listing store write failed", "listing", key, "error", err)
	}
	return l, nil
}

var _ listing.Loader = StoreLoader{}
