package recent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
)

type storeFactory func(t *testing.T, max int) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T, max int) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "sub", "recent.json"), max)
		},
		"sqlite": func(t *testing.T, max int) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "recent.db"), max)
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

// entryAt builds an entry with a fixed, increasing timestamp.
func entryAt(i int, kind domain.SourceKind, locs ...string) Entry {
	e := NewEntry(kind, locs)
	e.Timestamp = time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
	return e
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStore_AddListNewestFirst(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)

			list, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List on empty store: %v", err)
			}
			if len(list) != 0 {
				t.Fatalf("empty store returned %d entries", len(list))
			}

			for i, f := range []string{"a.json", "b.json", "c.json"} {
				if err := s.Add(ctx, entryAt(i, domain.SourceFile, "/data/"+f)); err != nil {
					t.Fatalf("Add: %v", err)
				}
			}

			list, err = s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got, want := names(list), []string{"c.json", "b.json", "a.json"}; !equal(got, want) {
				t.Errorf("List() = %v, want %v", got, want)
			}
			if list[0].Kind != domain.SourceFile || list[0].Locations[0] != "/data/c.json" {
				t.Errorf("entry round trip lost data: %+v", list[0])
			}
		})
	}
}

func TestStore_AddSameKeyMovesToFront(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)

			s.Add(ctx, entryAt(1, domain.SourceURL, "https://a.example/x.json"))
			s.Add(ctx, entryAt(2, domain.SourceURL, "https://b.example/y.json"))
			s.Add(ctx, entryAt(3, domain.SourceURL, "https://a.example/x.json"))

			list, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got, want := names(list), []string{"a.example/x.json", "b.example/y.json"}; !equal(got, want) {
				t.Errorf("List() = %v, want %v", got, want)
			}
		})
	}
}

func TestStore_TruncatesToMax(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 3)

			for i := 0; i < 5; i++ {
				if err := s.Add(ctx, entryAt(i, domain.SourceFile, fmt.Sprintf("f%d.json", i))); err != nil {
					t.Fatalf("Add: %v", err)
				}
			}

			list, err := s.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got, want := names(list), []string{"f4.json", "f3.json", "f2.json"}; !equal(got, want) {
				t.Errorf("List() = %v, want %v", got, want)
			}
		})
	}
}

func TestStore_RemoveAndClear(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)

			a := entryAt(1, domain.SourceFile, "a.json")
			b := entryAt(2, domain.SourceFile, "b.json")
			s.Add(ctx, a)
			s.Add(ctx, b)

			if err := s.Remove(ctx, a.Key); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if err := s.Remove(ctx, a.Key); !errors.Is(err, domain.ErrRecentNotFound) {
				t.Errorf("second Remove err = %v, want ErrRecentNotFound", err)
			}

			list, _ := s.List(ctx)
			if got, want := names(list), []string{"b.json"}; !equal(got, want) {
				t.Errorf("List() after Remove = %v, want %v", got, want)
			}

			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			list, _ = s.List(ctx)
			if len(list) != 0 {
				t.Errorf("List() after Clear = %v, want empty", list)
			}
			if err := s.Clear(ctx); err != nil {
				t.Errorf("Clear on empty store: %v", err)
			}
		})
	}
}

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recent.json")

	s1 := NewFileStore(path, 10)
	if err := s1.Add(ctx, NewEntry(domain.SourceFile, []string{"a.json"})); err != nil {
		t.Fatalf("Add: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}

	list, err := NewFileStore(path, 10).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Name != "a.json" {
		t.Errorf("reopened store = %+v", list)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "recent.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path, 10)
	if _, err := s.List(ctx); err == nil {
		t.Error("List should report a corrupt file")
	}
	if err := s.Add(ctx, NewEntry(domain.SourceFile, []string{"a.json"})); err != nil {
		t.Fatalf("Add should replace a corrupt file: %v", err)
	}
	if list, err := s.List(ctx); err != nil || len(list) != 1 {
		t.Errorf("List() = %v, %v", list, err)
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry(domain.SourceFile, []string{"/x/a.json", "/x/b.json", "/x/c.json"})
	if e.Name != "a.json +2" {
		t.Errorf("Name = %q", e.Name)
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}

	same := NewEntry(domain.SourceFile, []string{"/x/a.json", "/x/b.json", "/x/c.json"})
	if e.Key != same.Key {
		t.Error("same sources should produce the same key")
	}
	asURL := NewEntry(domain.SourceURL, []string{"/x/a.json", "/x/b.json", "/x/c.json"})
	if e.Key == asURL.Key {
		t.Error("kind should be part of the key")
	}
	reordered := NewEntry(domain.SourceFile, []string{"/x/b.json", "/x/a.json", "/x/c.json"})
	if e.Key == reordered.Key {
		t.Error("location order should be part of the key")
	}

	u := NewEntry(domain.SourceURL, []string{"https://gist.github.com/u/abc"})
	if u.Name != "gist.github.com/u/abc" {
		t.Errorf("URL Name = %q", u.Name)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.RecentConfig
		want    string
		wantErr bool
	}{
		{name: "file", cfg: config.RecentConfig{Backend: config.BackendFile, Path: filepath.Join(dir, "r.json")}, want: "*recent.FileStore"},
		{name: "sqlite", cfg: config.RecentConfig{Backend: config.BackendSQLite, Path: filepath.Join(dir, "r.db")}, want: "*recent.SQLiteStore"},
		{name: "none", cfg: config.RecentConfig{Backend: config.BackendNone}, want: "recent.NopStore"},
		{name: "unknown", cfg: config.RecentConfig{Backend: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer s.Close()
			if got := fmt.Sprintf("%T", s); got != tt.want {
				t.Errorf("Open() type = %s, want %s", got, tt.want)
			}
		})
	}
}
