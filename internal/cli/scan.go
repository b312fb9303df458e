package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"evfmap/config"
	"evfmap/internal/adapter/cache"
	"evfmap/internal/adapter/fs"
	"evfmap/internal/adapter/listing"
	"evfmap/internal/adapter/render"
	"evfmap/internal/adapter/store"
	"evfmap/internal/domain"
	"evfmap/internal/port"
	"evfmap/internal/usecase"
)

var (
	scanFormat  string
	scanWorkers int
	scanNoCache bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Map every listing under a directory",
	Long: `Find event-file listings under a directory, map them in parallel and print
their diagnostics. Results are cached in .evfmap/cache.db and reused while the
listing text and the mapping configuration are unchanged.

Examples:
  evfmap scan                 # Scan the current directory
  evfmap scan build/ -f json  # Scan a build output directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "", "output format: text, json, yaml (default from config)")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "parallel listings (default from config)")
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "ignore and do not update the result cache")
}

func runScan(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()
	logger := GetLogger()

	renderer, err := newRenderer(cmd.OutOrStdout(), scanFormat, false)
	if err != nil {
		return err
	}

	var resultStore port.ResultStore
	if cfg.Cache.Enabled && !scanNoCache {
		st, err := openResultStore(path, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		resultStore = st
	}

	mapUC := usecase.NewMapUseCase(listing.NewParser(), usecase.MapOptions{
		Chain:  cfg.Mapping.ChainUnits,
		Verify: cfg.Debug.VerifyOffsets,
	}, logger)
	mapper := cache.NewCachedMapper(mapUC,
		cache.NewResultCache(cfg.Cache.MemoryEntries, cfg.Cache.MemoryTTL),
		usecase.ContentKey,
	)

	workers := cfg.Scan.Workers
	if scanWorkers > 0 {
		workers = scanWorkers
	}

	scanUC := usecase.NewScanUseCase(
		fs.NewWalker(cfg.Scan.Includes, cfg.Scan.Excludes),
		fs.Reader{},
		mapper,
		resultStore,
		workers,
		logger,
	)

	var progress usecase.ProgressFunc
	if render.IsTerminal(os.Stderr) {
		progress = newProgress()
	}

	result, err := scanUC.Scan(cmd.Context(), path, progress)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	run := render.Run{ID: result.RunID}
	sets := make([]*domain.DiagnosticSet, 0, len(result.Listings))
	for _, l := range result.Listings {
		name, err := filepath.Rel(path, l.Path)
		if err != nil {
			name = l.Path
		}
		run.Listings = append(run.Listings, render.Listing{
			Name:   filepath.ToSlash(name),
			Cached: l.Cached,
			Err:    l.Err,
			Result: l.Result,
		})
		if l.Result != nil {
			sets = append(sets, l.Result.Diagnostics)
		}
	}

	if err := renderer.Scan(run); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nScan complete: %d mapped, %d cached, %d failed\n",
		result.Mapped, result.Cached, result.Failed)

	return checkFailSeverity(sets...)
}

// openResultStore opens the cache under dir and drops results written by an
// older schema or a different mapping configuration.
func openResultStore(dir string, cfg *config.Config) (*store.BoltStore, error) {
	if err := config.EnsureStateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create .evfmap directory: %w", err)
	}

	st, err := store.NewBoltStore(config.CacheDBPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to open result cache: %w", err)
	}

	migration, err := st.Migrate(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to migrate result cache: %w", err)
	}
	if migration.NeedsRebuild {
		GetLogger().Info("result cache cleared", "reason", migration.Reason)
	}
	return st, nil
}

func newProgress() usecase.ProgressFunc {
	var (
		bar   *progressbar.ProgressBar
		barMu sync.Mutex
	)

	return func(processed, total int, current string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(true),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetDescription("[cyan]Mapping[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}

		bar.Describe(fmt.Sprintf("[cyan]Mapping[reset] %-24s", truncateName(filepath.Base(current), 24)))
		bar.Set(processed)
	}
}

func truncateName(name string, width int) string {
	if runewidth.StringWidth(name) <= width {
		return name
	}
	return runewidth.Truncate(name, width, "...")
}
