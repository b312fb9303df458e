package domain

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Severity is the two-digit compiler severity code.
type Severity uint8

// Level buckets a severity code for display and thresholds.
type Level uint8

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
	LevelSevere
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelSevere:
		return "SEVERE"
	}
	return "UNKNOWN"
}

// Level maps the compiler code onto a display level.
func (s Severity) Level() Level {
	switch {
	case s < 10:
		return LevelInfo
	case s < 20:
		return LevelWarning
	case s < 30:
		return LevelError
	}
	return LevelSevere
}

// Diagnostic is a compiler message relocated to its original source line.
type Diagnostic struct {
	Severity Severity `json:"sev" yaml:"sev" msgpack:"sev"`
	Line     int      `json:"linenum" yaml:"linenum" msgpack:"line"`
	Column   int      `json:"column" yaml:"column" msgpack:"col"`
	ToColumn int      `json:"toColumn" yaml:"toColumn" msgpack:"to_col"`
	Code     string   `json:"code" yaml:"code" msgpack:"code"`
	Text     string   `json:"text" yaml:"text" msgpack:"text"`
}

// FileDiagnostics is the diagnostic list for one original path.
type FileDiagnostics struct {
	Path        string       `json:"path" yaml:"path" msgpack:"path"`
	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics" msgpack:"diags"`
}

// DiagnosticSet groups diagnostics by original path. Paths keep the order in which
// they were first added and diagnostics keep their append order.
type DiagnosticSet struct {
	order  []string
	byPath map[string][]Diagnostic
}

func NewDiagnosticSet() *DiagnosticSet {
	return &DiagnosticSet{byPath: make(map[string][]Diagnostic)}
}

// Add appends d under path.
func (s *DiagnosticSet) Add(path string, d Diagnostic) {
	if _, ok := s.byPath[path]; !ok {
		s.order = append(s.order, path)
	}
	s.byPath[path] = append(s.byPath[path], d)
}

// Merge appends every diagnostic of other, path by path. Nothing is deduplicated.
func (s *DiagnosticSet) Merge(other *DiagnosticSet) {
	if other == nil {
		return
	}
	for _, path := range other.order {
		for _, d := range other.byPath[path] {
			s.Add(path, d)
		}
	}
}

// Paths returns the paths in discovery order.
func (s *DiagnosticSet) Paths() []string {
	return append([]string(nil), s.order...)
}

// For returns the diagnostics filed under path.
func (s *DiagnosticSet) For(path string) []Diagnostic {
	return s.byPath[path]
}

// Len returns the total number of diagnostics.
func (s *DiagnosticSet) Len() int {
	n := 0
	for _, ds := range s.byPath {
		n += len(ds)
	}
	return n
}

// MaxSeverity returns the highest severity in the set, or 0 when empty.
func (s *DiagnosticSet) MaxSeverity() Severity {
	var max Severity
	for _, ds := range s.byPath {
		for _, d := range ds {
			if d.Severity > max {
				max = d.Severity
			}
		}
	}
	return max
}

// Filter returns a new set holding only diagnostics at or above min.
// Paths left without diagnostics are dropped.
func (s *DiagnosticSet) Filter(min Severity) *DiagnosticSet {
	out := NewDiagnosticSet()
	for _, path := range s.order {
		for _, d := range s.byPath[path] {
			if d.Severity >= min {
				out.Add(path, d)
			}
		}
	}
	return out
}

// Files flattens the set into a slice in discovery order.
func (s *DiagnosticSet) Files() []FileDiagnostics {
	files := make([]FileDiagnostics, 0, len(s.order))
	for _, path := range s.order {
		files = append(files, FileDiagnostics{Path: path, Diagnostics: s.byPath[path]})
	}
	return files
}

// DiagnosticSetFromFiles rebuilds a set from its flattened form.
func DiagnosticSetFromFiles(files []FileDiagnostics) *DiagnosticSet {
	s := NewDiagnosticSet()
	for _, f := range files {
		for _, d := range f.Diagnostics {
			s.Add(f.Path, d)
		}
	}
	return s
}

// MarshalJSON encodes the set as an object keyed by path, in discovery order.
func (s *DiagnosticSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, path := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(path)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s.byPath[path])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the set as a mapping keyed by path, in discovery order.
func (s *DiagnosticSet) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, path := range s.order {
		var val yaml.Node
		if err := val.Encode(s.byPath[path]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: path},
			&val,
		)
	}
	return node, nil
}
