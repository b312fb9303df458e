package cli

import (
	"fmt"
	"io"
	"os"

	"evfmap/internal/adapter/render"
	"evfmap/internal/domain"
)

func newRenderer(w io.Writer, format string, sourceMap bool) (*render.Renderer, error) {
	if format == "" {
		format = cfg.Output.Format
	}
	f, err := render.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	minSev, err := severityOption("output.min_severity", cfg.Output.MinSeverity)
	if err != nil {
		return nil, err
	}

	opts := render.Options{
		Format:      f,
		MinSeverity: minSev,
		SourceMap:   sourceMap,
	}
	if f == render.FormatText {
		opts.Color = render.ColorEnabled(cfg.Output.Color, os.Stdout)
		opts.Width = render.TerminalWidth(os.Stdout)
	}
	return render.New(w, opts), nil
}

func severityOption(name string, v int) (domain.Severity, error) {
	if v < 0 || v > 99 {
		return 0, fmt.Errorf("%s must be between 0 and 99, got %d", name, v)
	}
	return domain.Severity(v), nil
}

// checkFailSeverity reports errThreshold when output.fail_severity is set and
// one of sets reaches it.
func checkFailSeverity(sets ...*domain.DiagnosticSet) error {
	if cfg.Output.FailSeverity <= 0 {
		return nil
	}
	limit, err := severityOption("output.fail_severity", cfg.Output.FailSeverity)
	if err != nil {
		return err
	}
	for _, s := range sets {
		if s != nil && s.MaxSeverity() >= limit {
			return errThreshold
		}
	}
	return nil
}
