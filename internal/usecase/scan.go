package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"evfmap/internal/domain"
	"evfmap/internal/port"
)

// ScanUseCase maps every listing found under a directory.
type ScanUseCase struct {
	walker  port.FileWalker
	reader  port.FileReader
	mapper  port.Mapper
	store   port.ResultStore
	workers int
	logger  *slog.Logger
}

// NewScanUseCase creates a new scan use case. store may be nil to disable the
// persistent cache.
func NewScanUseCase(
	walker port.FileWalker,
	reader port.FileReader,
	mapper port.Mapper,
	store port.ResultStore,
	workers int,
	logger *slog.Logger,
) *ScanUseCase {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanUseCase{
		walker:  walker,
		reader:  reader,
		mapper:  mapper,
		store:   store,
		workers: workers,
		logger:  logger,
	}
}

// ListingResult is the outcome for one listing file.
type ListingResult struct {
	Path   string
	Cached bool
	Result *domain.MapResult
	Err    error
}

// ScanResult contains the results of a scan, in walk order.
type ScanResult struct {
	RunID    string
	Listings []ListingResult
	Mapped   int
	Cached   int
	Failed   int
}

// ProgressFunc is called after each listing is processed.
type ProgressFunc func(processed, total int, current string)

// Scan walks root, maps every listing in parallel and returns the results.
// A listing that fails to map is recorded in its ListingResult; only walk errors
// and cancellation fail the scan.
func (u *ScanUseCase) Scan(ctx context.Context, root string, progress ProgressFunc) (*ScanResult, error) {
	runID := uuid.NewString()
	logger := u.logger.With("run", runID)

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	logger.Info("scan started", "root", root, "listings", len(files), "workers", u.workers)

	result := &ScanResult{
		RunID:    runID,
		Listings: make([]ListingResult, len(files)),
	}

	var (
		mu        sync.Mutex
		processed int
	)
	done := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		processed++
		if progress != nil {
			progress(processed, len(files), path)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(u.workers, max(len(files), 1)))

	for i, file := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			res := u.mapListing(logger, file.Path)
			result.Listings[i] = res
			done(file.Path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, l := range result.Listings {
		switch {
		case l.Err != nil:
			result.Failed++
		case l.Cached:
			result.Cached++
		default:
			result.Mapped++
		}
	}

	logger.Info("scan finished",
		"mapped", result.Mapped,
		"cached", result.Cached,
		"failed", result.Failed,
	)
	return result, nil
}

func (u *ScanUseCase) mapListing(logger *slog.Logger, path string) ListingResult {
	res := ListingResult{Path: path}

	text, err := u.reader.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to read listing: %w", err)
		logger.Warn("listing skipped", "path", path, "error", res.Err)
		return res
	}

	key := ContentKey(text)
	if u.store != nil {
		cached, ok, err := u.store.GetResult(key)
		if err != nil {
			logger.Warn("cache lookup failed", "path", path, "error", err)
		} else if ok {
			res.Cached = true
			res.Result = cached
			return res
		}
	}

	mapped, err := u.mapper.Map(text)
	if err != nil {
		res.Err = err
		logger.Warn("listing failed", "path", filepath.Base(path), "error", err)
		return res
	}
	res.Result = mapped

	if u.store != nil {
		if err := u.store.PutResult(key, mapped); err != nil {
			logger.Warn("cache store failed", "path", path, "error", err)
		}
	}
	return res
}
