package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"evfmap/internal/adapter/fs"
	"evfmap/internal/adapter/listing"
	"evfmap/internal/adapter/listing/listingtest"
	"evfmap/internal/adapter/store"
	"evfmap/internal/port"
)

func writeListing(t *testing.T, dir, name, text string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
}

func scanFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeListing(t, dir, "a/MAIN.evfevent", listingtest.New().
		Processor().
		FileID(1, 0, "LIB/QRPGLESRC(MAIN)").
		Error(1, 2, 1, 5, 30, "RNF0001", "main error").
		FileEnd(1, 4).
		String())
	writeListing(t, dir, "b/OTHER.evfevent", listingtest.New().
		Processor().
		FileID(1, 0, "/home/dev/other.rpgle").
		Error(1, 1, 1, 5, 10, "RNF0002", "other warning").
		FileEnd(1, 2).
		String())
	writeListing(t, dir, "c/BROKEN.evfevent", "FILEEND    0 001 000003\n")
	writeListing(t, dir, "notes.txt", "not a listing")
	return dir
}

func newScanner(st port.ResultStore) *ScanUseCase {
	mapper := NewMapUseCase(listing.NewParser(), MapOptions{}, nil)
	return NewScanUseCase(fs.NewWalker(nil, nil), fs.Reader{}, mapper, st, 2, nil)
}

func openStore(t *testing.T) *store.BoltStore {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestScanMapsEveryListing(t *testing.T) {
	dir := scanFixture(t)

	var (
		mu    sync.Mutex
		calls int
		total int
	)
	res, err := newScanner(nil).Scan(context.Background(), dir, func(processed, n int, current string) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		total = n
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(res.Listings))
	}
	if res.Mapped != 2 || res.Failed != 1 || res.Cached != 0 {
		t.Errorf("unexpected counts mapped=%d failed=%d cached=%d", res.Mapped, res.Failed, res.Cached)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if calls != 3 || total != 3 {
		t.Errorf("expected 3 progress calls of 3, got %d of %d", calls, total)
	}

	// walk order
	main, other, broken := res.Listings[0], res.Listings[1], res.Listings[2]
	if filepath.Base(main.Path) != "MAIN.evfevent" || filepath.Base(broken.Path) != "BROKEN.evfevent" {
		t.Errorf("unexpected order %s, %s, %s", main.Path, other.Path, broken.Path)
	}
	if d := main.Result.Diagnostics.For("LIB/QRPGLESRC/MAIN"); len(d) != 1 || d[0].Line != 2 {
		t.Errorf("unexpected MAIN diagnostics %+v", d)
	}
	if d := other.Result.Diagnostics.For("/home/dev/other.rpgle"); len(d) != 1 || d[0].Code != "RNF0002" {
		t.Errorf("unexpected OTHER diagnostics %+v", d)
	}
	if !errors.Is(broken.Err, listing.ErrMalformedRecord) {
		t.Errorf("expected malformed record error, got %v", broken.Err)
	}
}

func TestScanReusesCachedResults(t *testing.T) {
	dir := scanFixture(t)
	st := openStore(t)

	first, err := newScanner(st).Scan(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached != 0 || first.Mapped != 2 {
		t.Fatalf("first run: mapped=%d cached=%d", first.Mapped, first.Cached)
	}

	second, err := newScanner(st).Scan(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Cached != 2 || second.Mapped != 0 || second.Failed != 1 {
		t.Errorf("second run: mapped=%d cached=%d failed=%d", second.Mapped, second.Cached, second.Failed)
	}
	if second.RunID == first.RunID {
		t.Error("each run gets its own id")
	}
	if d := second.Listings[0].Result.Diagnostics.For("LIB/QRPGLESRC/MAIN"); len(d) != 1 || d[0].Code != "RNF0001" {
		t.Errorf("cached result lost diagnostics: %+v", d)
	}
}

func TestScanCancelled(t *testing.T) {
	dir := scanFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newScanner(nil).Scan(ctx, dir, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	if _, err := newScanner(nil).Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("expected walk error")
	}
}
