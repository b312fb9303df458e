package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkerDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "build", "MYPGM.evfevent"), "x")
	writeFile(t, filepath.Join(root, "build", "OTHER.EVFEVENT"), "x")
	writeFile(t, filepath.Join(root, "src", "mypgm.rpgle"), "x")

	files, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		got = append(got, filepath.ToSlash(rel))
	}
	want := []string{"build/MYPGM.evfevent", "build/OTHER.EVFEVENT"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkerExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep", "A.evfevent"), "x")
	writeFile(t, filepath.Join(root, "old", "B.evfevent"), "x")

	files, err := NewWalker([]string{"**/*.evfevent"}, []string{"old/**"}).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0].Path) != "A.evfevent" {
		t.Errorf("expected only keep/A.evfevent, got %+v", files)
	}
}

func TestReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.evfevent")
	writeFile(t, path, "PROCESSOR  0 000 1\n")

	text, err := Reader{}.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if text != "PROCESSOR  0 000 1\n" {
		t.Errorf("unexpected content %q", text)
	}
}
