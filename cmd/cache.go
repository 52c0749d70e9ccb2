package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/handleui/ablunit/internal/listing"
	"github.com/handleui/ablunit/internal/output"
	"github.com/handleui/ablunit/internal/persistence"
)

var cacheFormat string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent listing store",
	Long: `Parsed debug listings are kept in a per-workspace SQLite store under
ABLUNIT_HOME (default ~/.ablunit) and reused while the listing file is
unchanged.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the listing store holds",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored listing for this workspace",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Parse every listing in the listings directory into the store",
	Args:  cobra.NoArgs,
	RunE:  runCacheWarm,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWarmCmd)

	cacheStatsCmd.Flags().StringVarP(&cacheFormat, "output", "o", formatText, "output format: text, json")
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(cacheFormat, formatText, formatJSON); err != nil {
		return err
	}
	store, err := persistence.OpenWorkspaceStore(appConfig.Workspace)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	st, err := store.Stats()
	if err != nil {
		return err
	}
	return writeStoreStats(cmd.OutOrStdout(), st, cacheFormat)
}

func writeStoreStats(w io.Writer, st persistence.StoreStats, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	_, err := fmt.Fprintf(w, "Store     %s\nListings  %d\nLines     %d\nSize      %s\n",
		st.Path, st.Listings, st.Lines, formatBytes(st.Bytes))
	return err
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	store, err := persistence.OpenWorkspaceStore(appConfig.Workspace)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	n, err := store.Clear()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Removed %d stored listings\n", output.BrandStyle.Render("✓"), n)
	return nil
}

// warmResult counts listings imported by a warm run.
type warmResult struct {
	Imported int
	Failed   int
}

func runCacheWarm(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd.Context(), appConfig, logger, sessionOptions{useStore: true})
	if err != nil {
		return err
	}
	defer s.Close()
	if s.store == nil {
		return errors.New("listing store unavailable")
	}

	res, err := warmListings(cmd.Context(), s.cache, s.cfg.ListingsPath(), s.cfg.Concurrency.Value)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %d listings", output.BrandStyle.Render("✓"), res.Imported)
	if res.Failed > 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), ", %s", output.WarningStyle.Render(fmt.Sprintf("%d failed", res.Failed)))
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

// warmListings imports every file under dir through cache. Each file's path
// relative to dir names its compiled source.
func warmListings(ctx context.Context, cache *listing.Cache, dir string, limit int) (warmResult, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*", doublestar.WithFilesOnly())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return warmResult{}, nil
		}
		return warmResult{}, fmt.Errorf("scanning listings directory: %w", err)
	}

	reqs := make([]listing.Request, 0, len(matches))
	for _, m := range matches {
		reqs = append(reqs, listing.Request{ListingPath: filepath.Join(dir, filepath.FromSlash(m)), SourcePath: m})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			return cache.Import(gctx, req)
		})
	}
	if err := g.Wait(); err != nil {
		return warmResult{}, err
	}

	var res warmResult
	for _, req := range reqs {
		if cache.Err(req.ListingPath) != nil {
			res.Failed++
		} else {
			res.Imported++
		}
	}
	return res, nil
}
