package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSaveWritesDatePartitionedFile(t *testing.T) {
	store := NewStore(t.TempDir())
	taken := time.Date(2026, 8, 29, 14, 30, 5, 123_000_000, time.UTC)
	payload := bytes.Repeat([]byte{0xFF, 0xD8}, 25_000)

	path, err := store.Save(payload, taken)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "2026-08-29" {
		t.Fatalf("wrong date partition: %s", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "143005.123-") || !strings.HasSuffix(base, ".jpg") {
		t.Fatalf("unexpected filename: %s", base)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("stored bytes differ from payload")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store := NewStore(t.TempDir())
	taken := time.Now()
	if _, err := store.Save([]byte("jpeg bytes"), taken); err != nil {
		t.Fatalf("save: %v", err)
	}
	dir, err := store.EnsureDateDir(taken)
	if err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSaveRejectsEmptyPayload(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Save(nil, time.Now()); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
}

func TestSameSecondSavesDoNotCollide(t *testing.T) {
	store := NewStore(t.TempDir())
	taken := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		path, err := store.Save([]byte{byte(i), 1, 2, 3}, taken)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if seen[path] {
			t.Fatalf("filename collision: %s", path)
		}
		seen[path] = true
	}
}

func TestEnsureDateDirConcurrentlyIdempotent(t *testing.T) {
	store := NewStore(t.TempDir())
	taken := time.Now()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.EnsureDateDir(taken); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent ensure failed: %v", err)
	}

	entries, err := os.ReadDir(store.Root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one date directory, found %d", len(entries))
	}
}
