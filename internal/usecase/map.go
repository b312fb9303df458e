package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"evfmap/internal/adapter/sourcemap"
	"evfmap/internal/domain"
	"evfmap/internal/port"
)

// MapOptions controls how the units of a listing are replayed.
type MapOptions struct {
	// Chain replays every unit after the first on top of the previous unit's
	// line table instead of an empty one.
	Chain bool
	// Verify checks each unit's line table against its delta log.
	Verify bool
	// KeepLines keeps each unit's line table in the result.
	KeepLines bool
}

// MapUseCase maps a single listing.
type MapUseCase struct {
	parser port.ListingParser
	opts   MapOptions
	logger *slog.Logger
}

// NewMapUseCase creates a new map use case.
func NewMapUseCase(parser port.ListingParser, opts MapOptions, logger *slog.Logger) *MapUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &MapUseCase{
		parser: parser,
		opts:   opts,
		logger: logger,
	}
}

// Map parses text and replays every compilation unit, merging their diagnostics
// in unit order.
func (u *MapUseCase) Map(text string) (*domain.MapResult, error) {
	units, err := u.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	result := &domain.MapResult{Diagnostics: domain.NewDiagnosticSet()}

	var prev []domain.Line
	for i := range units {
		unit := &units[i]
		root := unit.RootNode().Path

		opts := []sourcemap.Option{sourcemap.WithLogger(u.logger.With("unit", i))}
		if u.opts.Chain && i > 0 {
			opts = append(opts, sourcemap.WithBase(prev))
		}

		proc := sourcemap.New(unit, opts...)
		lines := proc.Expand()
		if u.opts.Verify {
			if err := proc.Verify(); err != nil {
				return nil, fmt.Errorf("unit %d (%s): %w", i, root, err)
			}
		}

		result.Diagnostics.Merge(proc.Diagnostics())

		summary := domain.UnitSummary{Root: root, Dropped: proc.Dropped()}
		if u.opts.KeepLines {
			summary.Lines = lines
		}
		result.Units = append(result.Units, summary)
		prev = lines
	}

	u.logger.Debug("listing mapped",
		"units", len(units),
		"files", len(result.Diagnostics.Paths()),
		"diagnostics", result.Diagnostics.Len(),
	)
	return result, nil
}

// ContentKey returns the cache key for a listing's text.
func ContentKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
