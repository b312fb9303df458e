// Package listingtest builds event-file listings for tests, laid out in the same
// fixed columns the compilers use.
package listingtest

import (
	"fmt"
	"strings"
)

type Builder struct {
	lines []string
}

func New() *Builder {
	return &Builder{}
}

func (b *Builder) add(line string) *Builder {
	b.lines = append(b.lines, line)
	return b
}

// Processor starts a new compilation unit.
func (b *Builder) Processor() *Builder {
	return b.add(fmt.Sprintf("%-10s %d %03d %d", "PROCESSOR", 0, 0, 1))
}

// FileID opens file id. startLine is the 1-based line of the parent holding the
// include, 0 for a root.
func (b *Builder) FileID(id, startLine int, name string) *Builder {
	return b.add(fmt.Sprintf("%-10s %d %03d %06d %03d %s %s %d",
		"FILEID", 0, id, startLine, len(name), name, "20240101120000", 0))
}

// FileEnd closes file id after length lines.
func (b *Builder) FileEnd(id, length int) *Builder {
	return b.add(fmt.Sprintf("%-10s %d %03d %06d", "FILEEND", 0, id, length))
}

// Expansion records a substitution. Bounds are 1-based; 0 leaves a range unset.
func (b *Builder) Expansion(id, removedStart, removedEnd, on, addedStart, addedEnd int) *Builder {
	return b.add(fmt.Sprintf("%-10s %d %03d %06d %06d %03d %06d %06d",
		"EXPANSION", 0, id, removedStart, removedEnd, on, addedStart, addedEnd))
}

// Error records a diagnostic at the 1-based generated line.
func (b *Builder) Error(id, line, column, toColumn, sev int, code, text string) *Builder {
	return b.add(fmt.Sprintf("%-10s %d %03d %d %06d %06d %03d %06d %03d %-7s %s %02d %03d %s",
		"ERROR", 0, id, 1, line, line, column, line, toColumn, code, sevChar(sev), sev, len(text), text))
}

// Raw appends a line verbatim.
func (b *Builder) Raw(line string) *Builder {
	return b.add(line)
}

func (b *Builder) Lines() []string {
	return append([]string(nil), b.lines...)
}

func (b *Builder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

func sevChar(sev int) string {
	switch {
	case sev < 10:
		return "I"
	case sev < 20:
		return "W"
	case sev < 30:
		return "E"
	}
	return "S"
}
