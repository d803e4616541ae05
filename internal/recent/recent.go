// Package recent keeps a short, newest-first list of recently loaded sources.
package recent

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
)

// DefaultMax is the list capacity when none is configured.
const DefaultMax = 10

// Entry is one remembered load.
type Entry struct {
	Key       string            `json:"key"`
	Name      string            `json:"name"`
	Kind      domain.SourceKind `json:"kind"`
	Locations []string          `json:"locations"`
	Timestamp time.Time         `json:"timestamp"`
}

// Store persists the recent-source list.
type Store interface {
	// List returns entries newest first.
	List(ctx context.Context) ([]Entry, error)
	// Add puts e first, replacing any entry with the same key, and trims
	// the list to capacity.
	Add(ctx context.Context, e Entry) error
	// Remove deletes the entry with the given key.
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// keyNamespace scopes entry keys so they never collide with other UUIDs.
var keyNamespace = uuid.MustParse("5b0c3c1e-8f4e-4c55-9d0a-6a1f2f7f4b21")

// NewEntry builds an entry for a group of locations of the same kind. The
// key depends only on the kind and locations, so loading the same sources
// again moves the existing entry to the front.
func NewEntry(kind domain.SourceKind, locations []string) Entry {
	locs := append([]string(nil), locations...)
	return Entry{
		Key:       Key(kind, locs),
		Name:      displayName(kind, locs),
		Kind:      kind,
		Locations: locs,
		Timestamp: time.Now(),
	}
}

// Key derives the content key for kind and locations.
func Key(kind domain.SourceKind, locations []string) string {
	data := string(kind) + "\n" + strings.Join(locations, "\n")
	return uuid.NewSHA1(keyNamespace, []byte(data)).String()
}

func displayName(kind domain.SourceKind, locations []string) string {
	if len(locations) == 0 {
		return ""
	}
	first := locations[0]
	if kind == domain.SourceFile {
		first = filepath.Base(first)
	} else if u, err := url.Parse(first); err == nil && u.Host != "" {
		first = u.Host + u.Path
	}
	if len(locations) == 1 {
		return first
	}
	return fmt.Sprintf("%s +%d", first, len(locations)-1)
}

// Open creates the store selected by cfg.
func Open(cfg config.RecentConfig) (Store, error) {
	max := cfg.Max
	if max <= 0 {
		max = DefaultMax
	}
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Path, max), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.Path, max)
	case config.BackendNone:
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown recent backend %q", cfg.Backend)
	}
}

// NopStore remembers nothing.
type NopStore struct{}

func (NopStore) List(context.Context) ([]Entry, error) { return nil, nil }
func (NopStore) Add(context.Context, Entry) error       { return nil }
func (NopStore) Remove(context.Context, string) error   { return domain.ErrRecentNotFound }
func (NopStore) Clear(context.Context) error            { return nil }
func (NopStore) Close() error                           { return nil }

// insert applies the Add rule to an in-memory list.
func insert(entries []Entry, e Entry, max int) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, e)
	for _, existing := range entries {
		if existing.Key != e.Key {
			out = append(out, existing)
		}
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}
