// Package render writes mapped diagnostics as colored text, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"evfmap/internal/domain"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// Listing is the rendered outcome of one listing file.
type Listing struct {
	Name   string
	Cached bool
	Err    error
	Result *domain.MapResult
}

// Run is a batch of listings produced by one scan.
type Run struct {
	ID       string
	Listings []Listing
}

type Options struct {
	Format      Format
	Color       bool
	Width       int // 0 disables truncation
	MinSeverity domain.Severity
	SourceMap   bool
}

// ColorEnabled resolves a color mode ("auto", "always", "never") for f.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always", "on":
		return true
	case "never", "off":
		return false
	}
	return IsTerminal(f)
}

func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of f, or 0 when f is not a terminal.
func TerminalWidth(f *os.File) int {
	if !IsTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

type Renderer struct {
	w    io.Writer
	opts Options
}

func New(w io.Writer, opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	return &Renderer{w: w, opts: opts}
}

type mapDocument struct {
	Diagnostics *domain.DiagnosticSet `json:"diagnostics" yaml:"diagnostics"`
	Units       []unitDocument        `json:"units" yaml:"units"`
}

type unitDocument struct {
	Root    string        `json:"root" yaml:"root"`
	Dropped int           `json:"dropped" yaml:"dropped"`
	Lines   []domain.Line `json:"lines" yaml:"lines"`
}

// Map renders the result of a single map invocation.
func (r *Renderer) Map(res *domain.MapResult) error {
	set := res.Diagnostics.Filter(r.opts.MinSeverity)

	switch r.opts.Format {
	case FormatJSON, FormatYAML:
		if !r.opts.SourceMap {
			return r.encode(set)
		}
		doc := mapDocument{Diagnostics: set}
		for _, u := range res.Units {
			doc.Units = append(doc.Units, unitDocument{Root: u.Root, Dropped: u.Dropped, Lines: u.Lines})
		}
		return r.encode(doc)
	}

	t := newTextWriter(r.w, r.opts)
	t.diagnostics(set)
	if r.opts.SourceMap {
		t.sourceMap(res.Units)
	}
	return t.err
}

type runDocument struct {
	RunID    string            `json:"run_id" yaml:"run_id"`
	Listings []listingDocument `json:"listings" yaml:"listings"`
}

type listingDocument struct {
	Listing     string                `json:"listing" yaml:"listing"`
	Cached      bool                  `json:"cached" yaml:"cached"`
	Error       string                `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics *domain.DiagnosticSet `json:"diagnostics" yaml:"diagnostics"`
}

// Scan renders every listing of a run in order.
func (r *Renderer) Scan(run Run) error {
	switch r.opts.Format {
	case FormatJSON, FormatYAML:
		doc := runDocument{RunID: run.ID, Listings: []listingDocument{}}
		for _, l := range run.Listings {
			ld := listingDocument{Listing: l.Name, Cached: l.Cached, Diagnostics: domain.NewDiagnosticSet()}
			if l.Err != nil {
				ld.Error = l.Err.Error()
			}
			if l.Result != nil {
				ld.Diagnostics = l.Result.Diagnostics.Filter(r.opts.MinSeverity)
			}
			doc.Listings = append(doc.Listings, ld)
		}
		return r.encode(doc)
	}

	t := newTextWriter(r.w, r.opts)
	for _, l := range run.Listings {
		t.listing(l)
	}
	return t.err
}

func (r *Renderer) encode(v any) error {
	if r.opts.Format == FormatYAML {
		enc := yaml.NewEncoder(r.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
