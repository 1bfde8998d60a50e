package state

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitewatch/internal/fingerprint"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestStoreLoadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), WithClock(fixedClock))

	st, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Version != CurrentVersion {
		t.Errorf("version = %d, want %d", st.Version, CurrentVersion)
	}
	if !st.LastUpdatedAt.Equal(fixedNow) {
		t.Errorf("lastUpdatedAt = %v, want %v", st.LastUpdatedAt, fixedNow)
	}
	if st.Snapshots == nil || len(st.Snapshots) != 0 {
		t.Errorf("expected empty non-nil snapshots, got %v", st.Snapshots)
	}
	if st.Algorithm != fingerprint.Default {
		t.Errorf("algorithm = %q, want %q", st.Algorithm, fingerprint.Default)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path)

	original := &State{
		Version:       CurrentVersion,
		LastUpdatedAt: fixedNow,
		Algorithm:     fingerprint.SHA256,
		Snapshots: map[string]Snapshot{
			"https://example.com/a": {Fingerprint: fingerprint.Sum("Hello"), NormalizedText: "Hello"},
			"https://example.com/b": {Fingerprint: fingerprint.Sum("World\n  x"), NormalizedText: "World\n  x"},
			"https://example.com/ü": {Fingerprint: fingerprint.Sum("日本語"), NormalizedText: "日本語"},
		},
	}

	if err := store.Save(original); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Version != original.Version {
		t.Errorf("version = %d, want %d", loaded.Version, original.Version)
	}
	if !loaded.LastUpdatedAt.Equal(original.LastUpdatedAt) {
		t.Errorf("lastUpdatedAt = %v, want %v", loaded.LastUpdatedAt, original.LastUpdatedAt)
	}
	if loaded.Algorithm != original.Algorithm {
		t.Errorf("algorithm = %q, want %q", loaded.Algorithm, original.Algorithm)
	}
	if !maps.Equal(loaded.Snapshots, original.Snapshots) {
		t.Errorf("snapshots differ\n got: %v\nwant: %v", loaded.Snapshots, original.Snapshots)
	}
}

func TestStoreSaveIsDeterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := New(fixedNow)
	for _, source := range []string{"c", "a", "b"} {
		st.Put(source, Snapshot{Fingerprint: fingerprint.Sum(source), NormalizedText: source})
	}

	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	if err := NewStore(first).Save(st); err != nil {
		t.Fatal(err)
	}
	if err := NewStore(second).Save(st.Clone()); err != nil {
		t.Fatal(err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("identical states serialized differently")
	}
	if strings.Index(string(a), `"a"`) > strings.Index(string(a), `"c"`) {
		t.Error("snapshots are not written in sorted order")
	}
}

func TestStoreSaveOverwritesAndCleansUp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")
	store := NewStore(path)

	first := New(fixedNow)
	first.Put("a", Snapshot{Fingerprint: fingerprint.Sum("1"), NormalizedText: "1"})
	if err := store.Save(first); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	second := New(fixedNow.Add(time.Hour))
	second.Put("b", Snapshot{Fingerprint: fingerprint.Sum("2"), NormalizedText: "2"})
	if err := store.Save(second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := loaded.Lookup("a"); ok {
		t.Error("save should overwrite the previous state in full")
	}
	if _, ok := loaded.Lookup("b"); !ok {
		t.Error("expected snapshot b after second save")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the state file, found %v", names)
	}
}

func TestStoreSaveFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0600); err != nil {
		t.Fatal(err)
	}

	store := NewStore(filepath.Join(blocker, "state.json"))
	err := store.Save(New(fixedNow))

	var perr *PersistError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PersistError, got %v", err)
	}
	if perr.Path != store.Path() {
		t.Errorf("path = %q, want %q", perr.Path, store.Path())
	}
}

func TestStoreSaveKeepsPreviousStateOnFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	store := NewStore(path)

	good := New(fixedNow)
	good.Put("a", Snapshot{Fingerprint: fingerprint.Sum("1"), NormalizedText: "1"})
	if err := store.Save(good); err != nil {
		t.Fatal(err)
	}

	if err := store.Save(nil); err == nil {
		t.Fatal("expected error saving nil state")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load after failed save: %v", err)
	}
	if _, ok := loaded.Lookup("a"); !ok {
		t.Error("previous state should survive a failed save")
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "not json", content: "https://example.com abcdef\n"},
		{name: "truncated json", content: `{"version":1,"snapshots":{`},
		{name: "wrong shape", content: `{"version":1,"snapshots":["a","b"]}`},
		{name: "missing version", content: `{"snapshots":{}}`},
		{name: "future version", content: `{"version":99,"snapshots":{}}`},
		{name: "snapshot without fingerprint", content: `{"version":1,"snapshots":{"a":{"normalizedText":"x"}}}`},
		{name: "trailing garbage", content: `{"version":1,"snapshots":{}} extra`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := NewStore(path).Load()
			var cerr *CorruptStateError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *CorruptStateError, got %v", err)
			}
			if cerr.Path != path {
				t.Errorf("path = %q, want %q", cerr.Path, path)
			}
		})
	}

	t.Run("future version wraps ErrUnsupportedVersion", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "state.json")
		if err := os.WriteFile(path, []byte(`{"version":2,"snapshots":{}}`), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := NewStore(path).Load()
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("expected ErrUnsupportedVersion, got %v", err)
		}
	})
}

func TestStoreLoadWithoutAlgorithmField(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	content := `{"version":1,"lastUpdatedAt":"2025-01-01T00:00:00Z","snapshots":{"a":{"fingerprint":"` +
		fingerprint.Sum("x") + `","normalizedText":"x"}}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	st, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Algorithm != "" {
		t.Errorf("algorithm = %q, want empty", st.Algorithm)
	}
	if st.EffectiveAlgorithm() != fingerprint.SHA256 {
		t.Errorf("effective algorithm = %q, want sha256", st.EffectiveAlgorithm())
	}
}
