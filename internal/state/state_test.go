package state

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// backends returns a fresh backend of each kind, rooted in a temp dir.
func backends(t *testing.T) map[string]func() Backend {
	t.Helper()
	return map[string]func() Backend{
		BackendFile: func() Backend {
			b, err := NewFileBackend(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileBackend: %v", err)
			}
			return b
		},
		BackendSQLite: func() Backend {
			b, err := OpenSQLite(filepath.Join(t.TempDir(), "spoon.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

func TestComputeHash(t *testing.T) {
	hash1 := ComputeHash([]byte("Hello, World!"))
	hash2 := ComputeHash([]byte("Different content"))
	hash3 := ComputeHash([]byte("Hello, World!"))

	// Same content = same hash
	if hash1 != hash3 {
		t.Errorf("Same content should produce same hash: %s != %s", hash1, hash3)
	}

	// Different content = different hash
	if hash1 == hash2 {
		t.Errorf("Different content should produce different hash")
	}

	// Hash should be 32 hex chars
	if len(hash1) != 32 {
		t.Errorf("Hash should be 32 chars, got %d", len(hash1))
	}
}

func TestComputeHashCoversWholeFile(t *testing.T) {
	content := make([]byte, 20000) // past any prefix-only hashing
	content[19999] = 1

	prefixOnly := make([]byte, 20000)
	if ComputeHash(prefixOnly) == ComputeHash(content) {
		t.Errorf("hash ignores bytes past the first 8KB")
	}
}

func TestProgressStore(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewProgressStore(mk(), nil)
			testHash := "abcdef1234567890abcdef1234567890"

			// Get returns 0 for unknown hash
			if pos := store.Get(testHash); pos != 0 {
				t.Errorf("Expected 0 for unknown hash, got %d", pos)
			}

			if err := store.Set(testHash, 1234); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if pos := store.Get(testHash); pos != 1234 {
				t.Errorf("Expected 1234, got %d", pos)
			}

			// The store does not clamp.
			if err := store.Set(testHash, -3); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if pos := store.Get(testHash); pos != -3 {
				t.Errorf("Expected -3, got %d", pos)
			}

			if err := store.Clear(testHash); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			if pos := store.Get(testHash); pos != 0 {
				t.Errorf("Expected 0 after clear, got %d", pos)
			}
		})
	}
}

func TestProgressInitKeepsExisting(t *testing.T) {
	b, _ := NewFileBackend(t.TempDir())
	store := NewProgressStore(b, nil)

	if err := store.Init("h"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, ok, _ := b.Get(progressKey("h")); !ok {
		t.Fatal("Init did not create a progress record")
	}
	store.Set("h", 9)
	store.Init("h")
	if got := store.Get("h"); got != 9 {
		t.Errorf("Init overwrote progress: got %d", got)
	}
}

func TestStatePersistence(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmpDir)

	for _, kind := range []string{BackendFile, BackendSQLite} {
		t.Run(kind, func(t *testing.T) {
			testHash := "abcdef1234567890abcdef1234567890"
			dir := filepath.Join(DefaultDir(), kind)

			b1, err := Open(kind, dir)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			NewProgressStore(b1, nil).Set(testHash, 5678)
			NewSession(b1, nil).SetActive(testHash)
			b1.Close()

			// New instance loads persisted data
			b2, err := Open(kind, dir)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer b2.Close()

			if pos := NewProgressStore(b2, nil).Get(testHash); pos != 5678 {
				t.Errorf("Expected 5678 from persisted state, got %d", pos)
			}
			if hash, ok := NewSession(b2, nil).Active(); !ok || hash != testHash {
				t.Errorf("Active() = %q, %v", hash, ok)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("redis", t.TempDir()); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestContentStore(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := mk()
			books := NewContentStore(b)
			hash := ComputeHash([]byte("book"))

			if books.Has(hash) {
				t.Fatal("Has() true on empty store")
			}
			if _, err := books.Lookup(hash); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Lookup() error = %v, want ErrNotFound", err)
			}

			rec := &BookRecord{
				Title:    "T",
				Chapters: []string{"One. Two.", "Three."},
				Segments: []string{"One. Two.", "Three."},
			}
			if err := books.Put(hash, rec); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, ok := books.Get(hash)
			if !ok || !reflect.DeepEqual(got, rec) {
				t.Fatalf("Get() = %+v, %v", got, ok)
			}

			// Put is a total overwrite.
			rec2 := &BookRecord{Title: "T2", Segments: []string{"Only."}}
			books.Put(hash, rec2)
			got, _ = books.Get(hash)
			if got.Title != "T2" || got.HasChapters() {
				t.Errorf("overwrite kept old fields: %+v", got)
			}

			NewProgressStore(b, nil).Set(hash, 1)
			if err := books.Delete(hash); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if books.Has(hash) {
				t.Error("record survived Delete")
			}
			if _, ok, _ := b.Get(progressKey(hash)); ok {
				t.Error("progress survived Delete")
			}
		})
	}
}

func TestContentStoreCorruptIsMiss(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := mk()
			books := NewContentStore(b)

			for _, raw := range []string{"{not json", `{"title":"x","segments":[]}`} {
				b.Put(bookKey("h"), []byte(raw))
				if _, ok := books.Get("h"); ok {
					t.Errorf("Get(%q) reported a hit", raw)
				}
				if _, err := books.Lookup("h"); !errors.Is(err, ErrCorrupt) {
					t.Errorf("Lookup(%q) error = %v, want ErrCorrupt", raw, err)
				}
			}
		})
	}
}

func TestLegacyRecordWithoutChapters(t *testing.T) {
	b, _ := NewFileBackend(t.TempDir())
	b.Put(bookKey("old"), []byte(`{"title":"Old","segments":["a","b"]}`))

	rec, ok := NewContentStore(b).Get("old")
	if !ok {
		t.Fatal("legacy record not readable")
	}
	if rec.HasChapters() {
		t.Error("legacy record should report chapters as unknown")
	}
}

func TestSessionPrefs(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewSession(mk(), nil)
			if got := s.Pref(PrefVerbosity, VerbosityBrief); got != VerbosityBrief {
				t.Errorf("default pref = %q", got)
			}
			s.SetPref(PrefVerbosity, VerbosityDetailed)
			if got := s.Pref(PrefVerbosity, VerbosityBrief); got != VerbosityDetailed {
				t.Errorf("pref = %q", got)
			}

			if _, ok := s.Active(); ok {
				t.Error("Active() set on empty store")
			}
			s.SetActive("abc")
			s.ClearActive()
			if _, ok := s.Active(); ok {
				t.Error("Active() survived ClearActive")
			}
		})
	}
}

func TestFileNames(t *testing.T) {
	tests := []struct {
		key  string
		file string
	}{
		{"book:0123abcd", "book_0123abcd.json"},
		{"progress:0123abcd", "progress_0123abcd.json"},
		{"pref:verbosity", "pref_verbosity.json"},
		{ActiveKey, "activeBook.json"},
	}
	for _, tt := range tests {
		if got := FileName(tt.key); got != tt.file {
			t.Errorf("FileName(%q) = %q, want %q", tt.key, got, tt.file)
		}
		if got, ok := KeyForFile("/some/dir/" + tt.file); !ok || got != tt.key {
			t.Errorf("KeyForFile(%q) = %q, %v", tt.file, got, ok)
		}
	}

	for _, name := range []string{".progress_x.json.123.tmp", "notes.txt", "other.json"} {
		if _, ok := KeyForFile(name); ok {
			t.Errorf("KeyForFile(%q) should be rejected", name)
		}
	}
}
