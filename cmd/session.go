package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/handleui/ablunit/internal/catalog"
	"github.com/handleui/ablunit/internal/config"
	"github.com/handleui/ablunit/internal/diagnostic"
	"github.com/handleui/ablunit/internal/listing"
	"github.com/handleui/ablunit/internal/persistence"
	"github.com/handleui/ablunit/internal/resolver"
)

// session is the per-invocation pipeline: one listing cache shared by every
// render, an optional persistent store behind it, and the message catalog.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *persistence.ListingStore
	cache    *listing.Cache
	resolver *resolver.Resolver
	catalog  *catalog.Catalog
	dlc      config.DLC
}

type sessionOptions struct {
	// useStore enables the SQLite listing store.
	useStore bool
	// loadCatalog resolves the runtime and loads its messages.
	loadCatalog bool
}

func newSession(ctx context.Context, cfg *config.Config, log *slog.Logger, opts sessionOptions) (*session, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &session{cfg: cfg, logger: log}

	var loader listing.Loader = listing.FileLoader{}
	if opts.useStore {
		store, err := persistence.OpenWorkspaceStore(cfg.Workspace)
		if err != nil {
			log.Warn("listing store unavailable, parsing listings directly", "error", err)
		} else {
			s.store = store
			loader = persistence.StoreLoader{Store: store, Next: loader, Logger: log}
		}
	}

	s.cache = listing.NewCache(loader, log)
	framework := cfg.Framework
	s.resolver = &resolver.Resolver{
		Workspace:   cfg.Workspace,
		ListingsDir: cfg.ListingsPath(),
		Propath:     cfg.Propath.Value,
		Framework:   &framework,
		Cache:       s.cache,
		Logger:      log,
	}

	if opts.loadCatalog {
		cat, err := s.loadCatalog(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.catalog = cat
	}
	return s, nil
}

func (s *session) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	dlc, err := s.cfg.RuntimeResolver(s.logger).Resolve(s.cfg.Workspace, s.cfg.OEVersion.Value)
	switch {
	case errors.Is(err, config.ErrNoDLC):
		s.logger.Debug("no OpenEdge runtime configured, message help disabled")
	case err != nil:
		s.logger.Warn("resolving OpenEdge runtime failed, message help disabled", "error", err)
	default:
		s.dlc = dlc
	}

	cacheDir, err := persistence.CatalogCacheDir(s.dlc.Path)
	if err != nil {
		s.logger.Warn("message catalog cache unavailable", "error", err)
		cacheDir = ""
	}
	cat, err := catalog.Load(ctx, catalog.Options{DLC: s.dlc.Path, CacheDir: cacheDir, Logger: s.logger})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("message catalog unavailable, rendering without help text", "dlc", s.dlc.Path, "error", err)
		return catalog.New(nil), nil
	}
	return cat, nil
}

func (s *session) renderer() *diagnostic.Renderer {
	return &diagnostic.Renderer{Resolver: s.resolver, Catalog: s.catalog}
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("closing listing store", "error", err)
		}
	}
}
