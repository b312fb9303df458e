package sourcemap

import (
	"errors"
	"fmt"
)

// ErrOffsetDrift means the line table no longer matches the changes recorded for it.
var ErrOffsetDrift = errors.New("source map offset drift")

// Reason says why the line table changed.
type Reason uint8

const (
	ReasonFile Reason = iota + 1
	ReasonExpansionAdd
	ReasonExpansionRemove
)

func (r Reason) String() string {
	switch r {
	case ReasonFile:
		return "file"
	case ReasonExpansionAdd:
		return "expansion-add"
	case ReasonExpansionRemove:
		return "expansion-remove"
	}
	return "unknown"
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Delta is one change to the line table: Delta lines inserted (positive) or
// removed (negative) at Position.
type Delta struct {
	Position int    `json:"position"`
	Delta    int    `json:"delta"`
	Reason   Reason `json:"reason"`
	FileID   int    `json:"file_id"`
}

func (p *Processor) record(pos, delta int, reason Reason, fileID int) {
	p.log = append(p.log, Delta{Position: pos, Delta: delta, Reason: reason, FileID: fileID})
}

// Verify checks that the table length equals the base length plus every
// recorded delta.
func (p *Processor) Verify() error {
	want := p.base
	for _, d := range p.log {
		want += d.Delta
	}
	if want != len(p.lines) {
		return fmt.Errorf("%w: table has %d lines, deltas account for %d", ErrOffsetDrift, len(p.lines), want)
	}
	return nil
}
