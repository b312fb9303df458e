package domain

// SentinelFileID is the id compilers give the generated unit itself. Its lines already
// exist in generated space, so it never contributes lines of its own.
const SentinelFileID = 999

// SyntheticPath tags generated lines that came from an expansion.
const SyntheticPath = "EXPANSION"

// NodeIndex addresses a FileNode inside a Unit's arena.
type NodeIndex int

// NoNode marks the missing parent of a root node.
const NoNode NodeIndex = -1

// DeclKind discriminates the children of a FileNode.
type DeclKind uint8

const (
	DeclFile DeclKind = iota + 1
	DeclExpansion
	DeclError
)

func (k DeclKind) String() string {
	switch k {
	case DeclFile:
		return "file"
	case DeclExpansion:
		return "expansion"
	case DeclError:
		return "error"
	}
	return "unknown"
}

// Decl is one child of a FileNode. The set of implementations is closed:
// FileRef, Expansion and Error.
type Decl interface {
	Kind() DeclKind
	decl()
}

// FileRef points at a nested FileNode in the same Unit.
type FileRef struct {
	Index NodeIndex
}

func (FileRef) Kind() DeclKind { return DeclFile }
func (FileRef) decl()          {}

// Range is an inclusive 0-based line range. Negative bounds mean "not set".
type Range struct {
	Start int
	End   int
}

// Valid reports whether both bounds are set.
func (r Range) Valid() bool {
	return r.Start >= 0 && r.End >= 0
}

// Len returns the number of lines covered by a valid range.
func (r Range) Len() int {
	if !r.Valid() || r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Expansion is a macro or precompiler substitution that either removes lines from its
// enclosing file or adds generated lines to the file identified by HostID.
type Expansion struct {
	HostID  int
	Removed Range
	Added   Range
}

func (Expansion) Kind() DeclKind { return DeclExpansion }
func (Expansion) decl()          {}

// Error is a diagnostic record exactly as the compiler reported it.
// Line is 0-based and counts lines of the generated unit.
type Error struct {
	FileID   int
	Severity Severity
	Line     int
	Column   int
	ToColumn int
	Code     string
	Text     string
}

func (Error) Kind() DeclKind { return DeclError }
func (Error) decl()          {}

// FileNode is one source fragment contributing lines to a generated unit.
type FileNode struct {
	ID       int
	Parent   NodeIndex
	Path     string
	StartsAt int
	Length   int
	Closed   bool
	Children []Decl
}

// Unit is one compilation unit: every FileNode opened under a PROCESSOR record,
// stored in an arena and addressed by index.
type Unit struct {
	Files []FileNode
	Root  NodeIndex
}

// Node returns the node stored at idx.
func (u *Unit) Node(idx NodeIndex) *FileNode {
	return &u.Files[idx]
}

// RootNode returns the unit's top-level file.
func (u *Unit) RootNode() *FileNode {
	return &u.Files[u.Root]
}

// Line describes where one generated line came from.
type Line struct {
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// UnitSummary describes one replayed compilation unit.
type UnitSummary struct {
	Root    string `json:"root"`
	Lines   []Line `json:"lines,omitempty"`
	Dropped int    `json:"dropped"`
}

// MapResult is the outcome of mapping one listing.
type MapResult struct {
	Diagnostics *DiagnosticSet `json:"diagnostics"`
	Units       []UnitSummary  `json:"units,omitempty"`
}
