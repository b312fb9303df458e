// Package sourcemap replays a compilation-unit tree into a table that maps every
// generated line back to its original file and line, and relocates the unit's
// diagnostics through that table.
package sourcemap

import (
	"log/slog"
	"slices"

	"evfmap/internal/domain"
)

// Processor replays one compilation unit. It is not safe for concurrent use;
// separate units get separate processors.
type Processor struct {
	unit    *domain.Unit
	chained bool
	logger  *slog.Logger

	lines         []domain.Line
	base          int
	startingIndex map[int]int
	addedLines    map[domain.NodeIndex]int
	log           []Delta

	diags   *domain.DiagnosticSet
	dropped int
	skipped int
	done    bool
}

type Option func(*Processor)

// WithBase continues from the line table of a previous unit instead of starting
// empty. No file of the unit splices its own lines; only expansions change the table.
func WithBase(lines []domain.Line) Option {
	return func(p *Processor) {
		p.lines = slices.Clone(lines)
		p.base = len(lines)
		p.chained = true
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(unit *domain.Unit, opts ...Option) *Processor {
	p := &Processor{
		unit:          unit,
		logger:        slog.New(slog.DiscardHandler),
		startingIndex: make(map[int]int),
		addedLines:    make(map[domain.NodeIndex]int),
		diags:         domain.NewDiagnosticSet(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Expand walks the unit depth-first in listing order and returns the final line
// table. Calling it again returns the same table.
func (p *Processor) Expand() []domain.Line {
	if !p.done {
		p.visit(p.unit.Root)
		p.done = true
		if p.dropped > 0 || p.skipped > 0 {
			p.logger.Debug("unit expanded",
				"root", p.unit.RootNode().Path,
				"lines", len(p.lines),
				"dropped_diagnostics", p.dropped,
				"skipped_expansions", p.skipped,
			)
		}
	}
	return p.lines
}

// Diagnostics returns the relocated diagnostics grouped by original path.
func (p *Processor) Diagnostics() *domain.DiagnosticSet {
	return p.diags
}

// Dropped returns how many diagnostics had no traceable original line.
func (p *Processor) Dropped() int {
	return p.dropped
}

// Deltas returns the log of every change made to the line table.
func (p *Processor) Deltas() []Delta {
	return p.log
}

func (p *Processor) visit(idx domain.NodeIndex) {
	node := p.unit.Node(idx)
	p.startingIndex[node.ID] = node.StartsAt

	if !p.chained && node.ID != domain.SentinelFileID {
		lines := make([]domain.Line, node.Length)
		for i := range lines {
			lines[i] = domain.Line{Path: node.Path, Line: i + 1}
		}
		p.insert(node.StartsAt+1+p.addedLines[node.Parent], lines, ReasonFile, node.ID)
		p.addedLines[node.Parent] += node.Length
	}

	for _, decl := range node.Children {
		switch d := decl.(type) {
		case domain.FileRef:
			p.visit(d.Index)
		case domain.Expansion:
			p.expand(node, d)
		case domain.Error:
			p.relocate(d)
		}
	}
}

func (p *Processor) expand(node *domain.FileNode, e domain.Expansion) {
	switch {
	case e.Added.Valid():
		start, ok := p.startingIndex[e.HostID]
		if !ok {
			p.skipped++
			p.logger.Debug("expansion targets unknown file", "file_id", node.ID, "host_id", e.HostID)
			return
		}
		lines := make([]domain.Line, e.Added.Len())
		for i := range lines {
			lines[i] = domain.Line{Path: domain.SyntheticPath, Line: i + 1, Synthetic: true}
		}
		p.insert(start+1+e.Added.Start, lines, ReasonExpansionAdd, e.HostID)

	case e.Removed.Valid():
		size := e.Removed.Len()
		p.addedLines[node.Parent] -= size
		p.remove(p.startingIndex[node.ID]+1+e.Removed.Start, size, node.ID)
	}
}

func (p *Processor) relocate(e domain.Error) {
	if e.Line < 0 || e.Line >= len(p.lines) || p.lines[e.Line].Synthetic {
		p.dropped++
		return
	}
	at := p.lines[e.Line]
	p.diags.Add(at.Path, domain.Diagnostic{
		Severity: e.Severity,
		Line:     at.Line,
		Column:   e.Column,
		ToColumn: e.ToColumn,
		Code:     e.Code,
		Text:     e.Text,
	})
}

func (p *Processor) insert(pos int, lines []domain.Line, reason Reason, fileID int) {
	pos = clampPos(pos, len(p.lines))
	p.lines = slices.Insert(p.lines, pos, lines...)
	p.record(pos, len(lines), reason, fileID)
}

func (p *Processor) remove(pos, n int, fileID int) {
	pos = clampPos(pos, len(p.lines))
	end := min(pos+n, len(p.lines))
	p.lines = slices.Delete(p.lines, pos, end)
	p.record(pos, pos-end, ReasonExpansionRemove, fileID)
}

func clampPos(pos, n int) int {
	return max(0, min(pos, n))
}
