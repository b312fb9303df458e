package sourcemap

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"evfmap/internal/adapter/listing"
	"evfmap/internal/adapter/listing/listingtest"
	"evfmap/internal/domain"
)

func parseUnits(t *testing.T, b *listingtest.Builder) []domain.Unit {
	t.Helper()
	units, err := listing.NewParser().Parse(b.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return units
}

func paths(lines []domain.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Path
	}
	return out
}

func TestExpandSingleFile(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "MYFILE").
		Error(1, 3, 1, 10, 30, "RNF0001", "SOME ERROR").
		FileEnd(1, 5))

	p := New(&units[0])
	lines := p.Expand()
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}

	want := map[string][]domain.Diagnostic{
		"MYFILE": {{Severity: 30, Line: 3, Column: 1, ToColumn: 10, Code: "RNF0001", Text: "SOME ERROR"}},
	}
	got := map[string][]domain.Diagnostic{}
	for _, path := range p.Diagnostics().Paths() {
		got[path] = p.Diagnostics().For(path)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if err := p.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestExpandNestedFile(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "A").
		FileID(2, 1, "B").
		FileEnd(2, 2).
		Error(1, 2, 1, 1, 20, "RNF0002", "in B").
		Error(1, 4, 1, 1, 20, "RNF0003", "in A").
		FileEnd(1, 3))

	p := New(&units[0])
	lines := p.Expand()

	wantLines := []domain.Line{
		{Path: "A", Line: 1},
		{Path: "B", Line: 1},
		{Path: "B", Line: 2},
		{Path: "A", Line: 2},
		{Path: "A", Line: 3},
	}
	if diff := cmp.Diff(wantLines, lines); diff != "" {
		t.Errorf("line table mismatch (-want +got):\n%s", diff)
	}

	if got := p.Diagnostics().For("B"); len(got) != 1 || got[0].Line != 1 {
		t.Errorf("expected one diagnostic on B line 1, got %+v", got)
	}
	if got := p.Diagnostics().For("A"); len(got) != 1 || got[0].Line != 2 {
		t.Errorf("expected one diagnostic on A line 2, got %+v", got)
	}
	if diff := cmp.Diff([]string{"B", "A"}, p.Diagnostics().Paths()); diff != "" {
		t.Errorf("path order mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandSiblingIncludesShiftByEarlierSiblings(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "MAIN").
		FileID(2, 1, "CPY1").
		FileEnd(2, 2).
		FileID(3, 2, "CPY2").
		FileEnd(3, 1).
		FileEnd(1, 3))

	lines := New(&units[0]).Expand()
	want := []string{"MAIN", "CPY1", "CPY1", "MAIN", "CPY2", "MAIN"}
	if diff := cmp.Diff(want, paths(lines)); diff != "" {
		t.Errorf("line table mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandRemoval(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "A").
		Expansion(1, 1, 1, 1, 0, 0).
		Error(1, 1, 1, 1, 30, "RNF0001", "first").
		Error(1, 4, 1, 1, 30, "RNF0002", "past end").
		FileEnd(1, 4))

	p := New(&units[0])
	lines := p.Expand()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines after removal, got %d", len(lines))
	}
	for _, l := range lines {
		if l.Line == 1 {
			t.Errorf("removed line 1 still present: %+v", lines)
		}
	}

	got := p.Diagnostics().For("A")
	if len(got) != 1 || got[0].Code != "RNF0001" || got[0].Line != 2 {
		t.Errorf("unexpected diagnostics %+v", got)
	}
	if p.Dropped() != 1 {
		t.Errorf("expected 1 dropped diagnostic, got %d", p.Dropped())
	}

	deltas := p.Deltas()
	if len(deltas) != 2 || deltas[1].Delta != -1 || deltas[1].Reason != ReasonExpansionRemove {
		t.Errorf("unexpected deltas %+v", deltas)
	}
	if err := p.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func includeListing() *listingtest.Builder {
	return listingtest.New().
		Processor().
		FileID(1, 0, "MAIN").
		FileID(2, 1, "CPY1").
		Expansion(2, 1, 1, 2, 0, 0).
		FileEnd(2, 3).
		FileID(3, 2, "CPY2")
}

func TestExpandRemovalInIncludeShiftsLaterSibling(t *testing.T) {
	units := parseUnits(t, includeListing().
		Error(3, 5, 1, 1, 20, "RNF0001", "in CPY2").
		FileEnd(3, 1).
		FileEnd(1, 3))

	p := New(&units[0])
	lines := p.Expand()

	want := []domain.Line{
		{Path: "MAIN", Line: 1},
		{Path: "CPY1", Line: 2},
		{Path: "CPY1", Line: 3},
		{Path: "MAIN", Line: 2},
		{Path: "CPY2", Line: 1},
		{Path: "MAIN", Line: 3},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("line table mismatch (-want +got):\n%s", diff)
	}

	got := p.Diagnostics().For("CPY2")
	if len(got) != 1 || got[0].Line != 1 {
		t.Errorf("unexpected diagnostics %+v", got)
	}
	if err := p.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestExpandInsertionIntoNestedHost(t *testing.T) {
	units := parseUnits(t, includeListing().
		Expansion(3, 0, 0, 3, 1, 1).
		Error(3, 3, 1, 1, 30, "RNF0001", "generated").
		Error(3, 5, 1, 1, 30, "RNF0002", "in MAIN").
		Error(3, 6, 1, 1, 30, "RNF0003", "in CPY2").
		FileEnd(3, 1).
		FileEnd(1, 3))

	p := New(&units[0])
	lines := p.Expand()

	want := []domain.Line{
		{Path: "MAIN", Line: 1},
		{Path: "CPY1", Line: 2},
		{Path: domain.SyntheticPath, Line: 1, Synthetic: true},
		{Path: "CPY1", Line: 3},
		{Path: "MAIN", Line: 2},
		{Path: "CPY2", Line: 1},
		{Path: "MAIN", Line: 3},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("line table mismatch (-want +got):\n%s", diff)
	}

	if got := p.Diagnostics().For("MAIN"); len(got) != 1 || got[0].Code != "RNF0002" || got[0].Line != 2 {
		t.Errorf("unexpected MAIN diagnostics %+v", got)
	}
	if got := p.Diagnostics().For("CPY2"); len(got) != 1 || got[0].Code != "RNF0003" || got[0].Line != 1 {
		t.Errorf("unexpected CPY2 diagnostics %+v", got)
	}
	if p.Dropped() != 1 {
		t.Errorf("expected 1 dropped diagnostic, got %d", p.Dropped())
	}

	last := p.Deltas()[len(p.Deltas())-1]
	if last != (Delta{Position: 2, Delta: 1, Reason: ReasonExpansionAdd, FileID: 3}) {
		t.Errorf("unexpected insertion delta %+v", last)
	}
	if err := p.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestExpandInsertion(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "A").
		Expansion(1, 0, 0, 1, 2, 3).
		Error(1, 2, 1, 1, 30, "RNF0001", "generated").
		Error(1, 4, 1, 1, 30, "RNF0002", "real").
		FileEnd(1, 3))

	p := New(&units[0])
	lines := p.Expand()

	want := []domain.Line{
		{Path: "A", Line: 1},
		{Path: domain.SyntheticPath, Line: 1, Synthetic: true},
		{Path: domain.SyntheticPath, Line: 2, Synthetic: true},
		{Path: "A", Line: 2},
		{Path: "A", Line: 3},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("line table mismatch (-want +got):\n%s", diff)
	}

	got := p.Diagnostics().For("A")
	if len(got) != 1 || got[0].Code != "RNF0002" || got[0].Line != 2 {
		t.Errorf("unexpected diagnostics %+v", got)
	}
	if len(p.Diagnostics().For(domain.SyntheticPath)) != 0 {
		t.Error("diagnostic on synthetic line must be dropped")
	}

	wantDeltas := []Delta{
		{Position: 0, Delta: 3, Reason: ReasonFile, FileID: 1},
		{Position: 1, Delta: 2, Reason: ReasonExpansionAdd, FileID: 1},
	}
	if diff := cmp.Diff(wantDeltas, p.Deltas()); diff != "" {
		t.Errorf("deltas mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandNoOpAndUnknownHost(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "A").
		Expansion(1, 0, 0, 1, 0, 0).
		Expansion(1, 0, 0, 7, 1, 2).
		FileEnd(1, 3))

	p := New(&units[0])
	if n := len(p.Expand()); n != 3 {
		t.Errorf("expected no-op expansions to leave 3 lines, got %d", n)
	}
	if n := len(p.Deltas()); n != 1 {
		t.Errorf("expected only the file splice to be recorded, got %d deltas", n)
	}
}

func TestExpandSentinelRootContributesNoLines(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(domain.SentinelFileID, 0, "/tmp/generated.rpgle").
		Error(domain.SentinelFileID, 1, 1, 1, 30, "RNF0001", "nowhere").
		FileEnd(domain.SentinelFileID, 10))

	p := New(&units[0])
	if n := len(p.Expand()); n != 0 {
		t.Errorf("expected empty table, got %d lines", n)
	}
	if p.Diagnostics().Len() != 0 || p.Dropped() != 1 {
		t.Errorf("expected the diagnostic to be dropped, got %d kept %d dropped", p.Diagnostics().Len(), p.Dropped())
	}
}

func TestExpandChainedUnit(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "LIB/QSQLSRC(PGM)").
		FileEnd(1, 4).
		Processor().
		FileID(domain.SentinelFileID, 0, "QTEMP/QSQLTEMP1(PGM)").
		Expansion(domain.SentinelFileID, 0, 0, domain.SentinelFileID, 2, 2).
		Error(domain.SentinelFileID, 2, 1, 1, 30, "RNF0001", "generated").
		Error(domain.SentinelFileID, 3, 1, 1, 30, "RNF0002", "real").
		FileEnd(domain.SentinelFileID, 5))

	first := New(&units[0])
	base := first.Expand()

	second := New(&units[1], WithBase(base))
	lines := second.Expand()
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if len(base) != 4 {
		t.Errorf("base table must not be modified, got %d lines", len(base))
	}

	got := second.Diagnostics().For("LIB/QSQLSRC/PGM")
	if len(got) != 1 || got[0].Code != "RNF0002" || got[0].Line != 2 {
		t.Errorf("unexpected diagnostics %+v", got)
	}
	if err := second.Verify(); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestExpandIsDeterministic(t *testing.T) {
	b := listingtest.New().
		Processor().
		FileID(1, 0, "A").
		FileID(2, 2, "B").
		Error(2, 3, 1, 1, 10, "RNF1", "x").
		FileEnd(2, 2).
		Expansion(1, 0, 0, 1, 1, 1).
		Error(1, 2, 1, 1, 10, "RNF2", "y").
		Error(1, 2, 2, 2, 10, "RNF3", "z").
		FileEnd(1, 6)

	run := func() []domain.FileDiagnostics {
		units := parseUnits(t, b)
		p := New(&units[0])
		p.Expand()
		return p.Diagnostics().Files()
	}

	first := run()
	if diff := cmp.Diff(first, run()); diff != "" {
		t.Errorf("expansion not deterministic (-first +second):\n%s", diff)
	}
	a := first[len(first)-1]
	if a.Path != "A" || len(a.Diagnostics) != 2 || a.Diagnostics[0].Code != "RNF2" || a.Diagnostics[1].Code != "RNF3" {
		t.Errorf("expected stable order for diagnostics on the same line, got %+v", a)
	}
}

func TestExpandTwiceReturnsSameTable(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "A").
		Error(1, 1, 1, 1, 10, "RNF1", "x").
		FileEnd(1, 2))

	p := New(&units[0])
	p.Expand()
	p.Expand()
	if n := len(p.Expand()); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
	if n := p.Diagnostics().Len(); n != 1 {
		t.Errorf("expected 1 diagnostic, got %d", n)
	}
}

func TestVerifyDetectsDrift(t *testing.T) {
	units := parseUnits(t, listingtest.New().
		Processor().
		FileID(1, 0, "A").
		FileEnd(1, 2))

	p := New(&units[0])
	p.Expand()
	p.lines = append(p.lines, domain.Line{Path: "A", Line: 3})

	if err := p.Verify(); !errors.Is(err, ErrOffsetDrift) {
		t.Errorf("expected ErrOffsetDrift, got %v", err)
	}
}
