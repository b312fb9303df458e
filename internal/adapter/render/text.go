package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"evfmap/internal/domain"
)

type palette struct {
	path    *color.Color
	dim     *color.Color
	levels  map[domain.Level]*color.Color
	failed  *color.Color
	success *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		path: color.New(color.Bold),
		dim:  color.New(color.Faint),
		levels: map[domain.Level]*color.Color{
			domain.LevelInfo:    color.New(color.FgCyan),
			domain.LevelWarning: color.New(color.FgYellow),
			domain.LevelError:   color.New(color.FgRed),
			domain.LevelSevere:  color.New(color.FgRed, color.Bold),
		},
		failed:  color.New(color.FgRed, color.Bold),
		success: color.New(color.FgGreen),
	}
	for _, c := range p.all() {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) all() []*color.Color {
	cs := []*color.Color{p.path, p.dim, p.failed, p.success}
	for _, c := range p.levels {
		cs = append(cs, c)
	}
	return cs
}

// textWriter keeps the first write error and skips everything after it.
type textWriter struct {
	w     io.Writer
	width int
	min   domain.Severity
	p     palette
	err   error
}

func newTextWriter(w io.Writer, opts Options) *textWriter {
	return &textWriter{w: w, width: opts.Width, min: opts.MinSeverity, p: newPalette(opts.Color)}
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) listing(l Listing) {
	switch {
	case l.Err != nil:
		t.printf("%s %s\n", t.p.failed.Sprint("FAILED"), l.Name)
		t.printf("  %s\n", l.Err)
		return
	case l.Cached:
		t.printf("%s %s\n", l.Name, t.p.dim.Sprint("(cached)"))
	default:
		t.printf("%s\n", l.Name)
	}
	if l.Result != nil {
		t.diagnostics(l.Result.Diagnostics.Filter(t.min))
	}
}

func location(d domain.Diagnostic) string {
	return fmt.Sprintf("%d:%d-%d", d.Line, d.Column, d.ToColumn)
}

func (t *textWriter) diagnostics(set *domain.DiagnosticSet) {
	if set.Len() == 0 {
		t.printf("%s\n", t.p.success.Sprint("no diagnostics"))
		return
	}

	locWidth := 0
	for _, path := range set.Paths() {
		for _, d := range set.For(path) {
			locWidth = max(locWidth, runewidth.StringWidth(location(d)))
		}
	}

	for _, path := range set.Paths() {
		t.printf("%s\n", t.p.path.Sprint(path))
		for _, d := range set.For(path) {
			level := d.Severity.Level()
			loc := runewidth.FillRight(location(d), locWidth)
			sev := fmt.Sprintf("%-7s %02d", level, d.Severity)
			code := fmt.Sprintf("%-7s", d.Code)
			text := d.Text
			if t.width > 0 {
				used := runewidth.StringWidth(loc) + runewidth.StringWidth(sev) + runewidth.StringWidth(code) + 8
				text = truncate(text, t.width-used)
			}
			t.printf("  %s  %s  %s  %s\n", loc, t.p.levels[level].Sprint(sev), code, text)
		}
	}
}

func (t *textWriter) sourceMap(units []domain.UnitSummary) {
	for i, u := range units {
		t.printf("\n%s\n", t.p.path.Sprintf("unit %d: %s", i, u.Root))
		if u.Dropped > 0 {
			t.printf("  %s\n", t.p.dim.Sprintf("%d diagnostics dropped", u.Dropped))
		}
		for n, l := range u.Lines {
			if l.Synthetic {
				t.printf("  %5d  %s\n", n+1, t.p.dim.Sprint(l.Path))
				continue
			}
			t.printf("  %5d  %s:%d\n", n+1, l.Path, l.Line)
		}
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return strings.TrimRight(runewidth.Truncate(value, width, "..."), " ")
}
