// Package listing parses compiler event-file listings into compilation-unit trees.
//
// A listing is a stream of fixed-width records. Each record starts with a tag in
// columns 0-9 and a three digit file id in columns 13-15. FILEID and FILEEND
// records bracket the lines one source file contributes to the generated unit,
// EXPANSION records describe macro and precompiler substitutions, and ERROR
// records carry the diagnostics. A PROCESSOR record separates compilation units.
package listing

import (
	"strconv"
	"strings"

	"fortio.org/safecast"

	"evfmap/internal/domain"
)

const recordWidth = 150

// Record tags.
const (
	TagProcessor = "PROCESSOR"
	TagFileID    = "FILEID"
	TagFileEnd   = "FILEEND"
	TagExpansion = "EXPANSION"
	TagError     = "ERROR"
)

// Parser implements port.ListingParser.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse splits text into lines and parses them.
func (p *Parser) Parse(text string) ([]domain.Unit, error) {
	return ParseLines(SplitLines(text))
}

// SplitLines splits listing text on newlines, dropping carriage returns.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

type parseState struct {
	// arena holds every node of the listing; units are cut out of it when emitted.
	arena   []domain.FileNode
	stack   []domain.NodeIndex
	paths   map[int]string
	root    domain.NodeIndex
	units   []domain.Unit
	lineNum int
}

// ParseLines parses a listing given as lines. It returns one Unit per compilation
// unit, in listing order. Any malformed record aborts the parse.
func ParseLines(lines []string) ([]domain.Unit, error) {
	st := &parseState{
		paths: make(map[int]string),
		root:  domain.NoNode,
	}

	for i, raw := range lines {
		st.lineNum = i + 1
		if strings.TrimSpace(raw) == "" {
			continue
		}
		rec := padRecord(raw)

		var err error
		switch tag := strings.TrimSpace(rec[:10]); tag {
		case TagProcessor:
			st.closeUnit()
		case TagFileID:
			err = st.fileID(rec)
		case TagFileEnd:
			err = st.fileEnd(rec)
		case TagExpansion:
			err = st.expansion(rec)
		case TagError:
			err = st.errorRecord(rec)
		}
		if err != nil {
			return nil, err
		}
	}

	st.closeUnit()
	return st.units, nil
}

func padRecord(line string) string {
	if len(line) >= recordWidth {
		return line
	}
	return line + strings.Repeat(" ", recordWidth-len(line))
}

func (st *parseState) closeUnit() {
	if st.root == domain.NoNode {
		return
	}
	st.units = append(st.units, extractUnit(st.arena, st.root))
	st.root = domain.NoNode
}

func (st *parseState) top() (domain.NodeIndex, bool) {
	if len(st.stack) == 0 {
		return domain.NoNode, false
	}
	return st.stack[len(st.stack)-1], true
}

func (st *parseState) fileID(rec string) error {
	id, err := st.columnInt(rec, TagFileID, "file id", 13, 16)
	if err != nil {
		return err
	}
	fields := strings.Fields(rec)
	if len(fields) < 6 {
		return &RecordError{Line: st.lineNum, Tag: TagFileID, Field: "missing source name"}
	}
	start, err := st.fieldInt(fields, TagFileID, "start line", 3)
	if err != nil {
		return err
	}

	path, seen := st.paths[id]
	if !seen {
		path = NormalizeName(fields[5])
		st.paths[id] = path
	}

	parent, _ := st.top()
	st.arena = append(st.arena, domain.FileNode{
		ID:       id,
		Parent:   parent,
		Path:     path,
		StartsAt: start - 1,
	})
	st.stack = append(st.stack, domain.NodeIndex(len(st.arena)-1))
	return nil
}

func (st *parseState) fileEnd(rec string) error {
	idx, ok := st.top()
	if !ok {
		return &RecordError{Line: st.lineNum, Tag: TagFileEnd, Field: "no open file"}
	}
	fields := strings.Fields(rec)
	length, err := st.fieldInt(fields, TagFileEnd, "line count", 3)
	if err != nil {
		return err
	}

	st.stack = st.stack[:len(st.stack)-1]
	node := &st.arena[idx]
	node.Length = length
	node.Closed = true

	if parent, ok := st.top(); ok {
		st.arena[parent].Children = append(st.arena[parent].Children, domain.FileRef{Index: idx})
	} else {
		st.root = idx
	}
	return nil
}

func (st *parseState) expansion(rec string) error {
	host, ok := st.top()
	if !ok {
		return nil
	}
	fields := strings.Fields(rec)
	var vals [5]int
	names := [5]string{"removed start", "removed end", "target file", "added start", "added end"}
	for i := range vals {
		v, err := st.fieldInt(fields, TagExpansion, names[i], 3+i)
		if err != nil {
			return err
		}
		vals[i] = v
	}

	st.arena[host].Children = append(st.arena[host].Children, domain.Expansion{
		HostID:  vals[2],
		Removed: domain.Range{Start: vals[0] - 1, End: vals[1] - 1},
		Added:   domain.Range{Start: vals[3] - 1, End: vals[4] - 1},
	})
	return nil
}

func (st *parseState) errorRecord(rec string) error {
	host, ok := st.top()
	if !ok {
		return nil
	}
	fileID, err := st.columnInt(rec, TagError, "file id", 13, 16)
	if err != nil {
		return err
	}
	sev, err := st.columnInt(rec, TagError, "severity", 58, 60)
	if err != nil {
		return err
	}
	severity, err := safecast.Conv[uint8](sev)
	if err != nil {
		return &RecordError{Line: st.lineNum, Tag: TagError, Field: "severity", Err: err}
	}
	line, err := st.columnInt(rec, TagError, "line", 37, 43)
	if err != nil {
		return err
	}
	column, err := st.columnInt(rec, TagError, "start column", 33, 36)
	if err != nil {
		return err
	}
	toColumn, err := st.columnInt(rec, TagError, "end column", 44, 47)
	if err != nil {
		return err
	}

	st.arena[host].Children = append(st.arena[host].Children, domain.Error{
		FileID:   fileID,
		Severity: domain.Severity(severity),
		Line:     line - 1,
		Column:   column,
		ToColumn: toColumn,
		Code:     strings.TrimSpace(rec[48:55]),
		Text:     strings.TrimSpace(rec[65:]),
	})
	return nil
}

func (st *parseState) columnInt(rec, tag, field string, from, to int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(rec[from:to]))
	if err != nil {
		return 0, &RecordError{Line: st.lineNum, Tag: tag, Field: field, Err: err}
	}
	return v, nil
}

func (st *parseState) fieldInt(fields []string, tag, field string, idx int) (int, error) {
	if idx >= len(fields) {
		return 0, &RecordError{Line: st.lineNum, Tag: tag, Field: "missing " + field}
	}
	v, err := strconv.Atoi(fields[idx])
	if err != nil {
		return 0, &RecordError{Line: st.lineNum, Tag: tag, Field: field, Err: err}
	}
	return v, nil
}

// extractUnit copies the subtree rooted at root into a fresh arena, keeping
// children order and remapping every index.
func extractUnit(arena []domain.FileNode, root domain.NodeIndex) domain.Unit {
	var unit domain.Unit

	var copyNode func(src domain.NodeIndex, parent domain.NodeIndex) domain.NodeIndex
	copyNode = func(src domain.NodeIndex, parent domain.NodeIndex) domain.NodeIndex {
		n := arena[src]
		dst := domain.NodeIndex(len(unit.Files))
		unit.Files = append(unit.Files, domain.FileNode{
			ID:       n.ID,
			Parent:   parent,
			Path:     n.Path,
			StartsAt: n.StartsAt,
			Length:   n.Length,
			Closed:   n.Closed,
		})

		children := make([]domain.Decl, 0, len(n.Children))
		for _, c := range n.Children {
			if ref, ok := c.(domain.FileRef); ok {
				children = append(children, domain.FileRef{Index: copyNode(ref.Index, dst)})
				continue
			}
			children = append(children, c)
		}
		unit.Files[dst].Children = children
		return dst
	}

	unit.Root = copyNode(root, domain.NoNode)
	return unit
}
