package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/ingest"
	"github.com/occva/X-Bookmarks/internal/recent"
	"github.com/occva/X-Bookmarks/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// exportJSON has three distinct tweets; tweet 1 appears twice and tweet 2
// quotes alice.
const exportJSON = `[
  {"id": "1", "full_text": "first @bob", "screen_name": "alice", "name": "Alice",
   "media": [{"type": "photo", "original": "https://pbs.twimg.com/1.jpg"}]},
  {"id": "2", "full_text": "second", "screen_name": "bob", "name": "Bob",
   "quoted_status": {"id": "7", "legacy": {"full_text": "quoted"}, "user": {"screen_name": "alice", "name": "Alice"}}},
  {"id": "3", "full_text": "third", "screen_name": "Alice", "name": "Alice"},
  {"id": "1", "full_text": "first @bob", "screen_name": "alice", "name": "Alice"}
]`

// mapFetcher serves canned bodies by URL.
type mapFetcher map[string]string

func (m mapFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	body, ok := m[rawURL]
	if !ok {
		return nil, fmt.Errorf("%w: status 404", domain.ErrFetchFailed)
	}
	return []byte(body), nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// newTestService returns an empty service whose recent list lives in a
// temp dir, plus the path of a ready-to-load export file.
func newTestService(t *testing.T, fetcher ingest.Fetcher) (*service.FeedService, string) {
	t.Helper()
	dir := t.TempDir()
	store := recent.NewFileStore(filepath.Join(dir, "recent.json"), recent.DefaultMax)
	loader := ingest.NewLoader(fetcher, config.IngestConfig{}, testLogger())
	return service.NewFeedService(loader, store, testLogger()), writeFile(t, dir, "bookmarks.json", exportJSON)
}

// loadedService returns a service with exportJSON loaded.
func loadedService(t *testing.T) *service.FeedService {
	t.Helper()
	svc, path := newTestService(t, nil)
	if _, err := svc.Load(context.Background(), service.LoadRequest{Files: []string{path}}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return svc
}
