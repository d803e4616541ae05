package tui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/ingest"
	"github.com/occva/X-Bookmarks/internal/service"
)

const exportJSON = `[
  {"id": "1", "full_text": "see https://t.co/abc", "screen_name": "alice", "name": "Alice",
   "metadata": {"legacy": {"entities": {"urls": [{"url": "https://t.co/abc", "expanded_url": "https://example.com/post", "display_url": "example.com/post"}]}}},
   "media": [{"original": "https://pbs.twimg.com/1.jpg"}]},
  {"id": "2", "full_text": "[red]second[-]", "screen_name": "bob", "name": "Bob", "favorite_count": 1500,
   "quoted_status": {"legacy": {"full_text": "quoted line"}, "user": {"screen_name": "alice", "name": "Alice"}}},
  {"id": "1", "full_text": "see https://t.co/abc", "screen_name": "alice", "name": "Alice"}
]`

func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "bookmarks.json")
	if err := os.WriteFile(path, []byte(exportJSON), 0644); err != nil {
		t.Fatal(err)
	}
	svc := service.NewFeedService(ingest.NewLoader(nil, config.IngestConfig{}, logger), nil, logger)
	if _, err := svc.Load(context.Background(), service.LoadRequest{Files: []string{path}}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return NewApp(svc, logger)
}

func TestNewApp_PopulatesPanes(t *testing.T) {
	a := newTestApp(t)

	// "All" plus alice and bob.
	if got := a.userList.GetItemCount(); got != 3 {
		t.Errorf("user list has %d items, want 3", got)
	}
	main, _ := a.userList.GetItemText(0)
	if main != allUsers {
		t.Errorf("first user entry = %q, want %q", main, allUsers)
	}
	if main, _ := a.userList.GetItemText(1); !strings.Contains(main, "@alice (2)") {
		t.Errorf("second user entry = %q, want alice with count 2", main)
	}

	// Header plus two distinct tweets.
	if got := a.cardTable.GetRowCount(); got != 3 {
		t.Errorf("card table has %d rows, want 3", got)
	}
	if got := a.cardTable.GetCell(1, 4).Text; got != "×2" {
		t.Errorf("dup cell = %q, want ×2", got)
	}
	if got := a.cardTable.GetCell(2, 3).Text; got != "1.5K" {
		t.Errorf("likes cell = %q, want 1.5K", got)
	}
	if !strings.Contains(a.detail.GetText(false), "example.com/post") {
		t.Errorf("detail should show the first card with expanded links, got %q", a.detail.GetText(false))
	}
}

func TestApp_SelectUserFilters(t *testing.T) {
	a := newTestApp(t)

	// alice is first: she authored one tweet and is quoted by the other.
	a.selectUser(2)
	if got := a.cardTable.GetRowCount(); got != 2 {
		t.Errorf("rows after filtering to bob = %d, want 2", got)
	}
	if !strings.Contains(a.cardTable.GetTitle(), "@bob") {
		t.Errorf("title = %q, want filter shown", a.cardTable.GetTitle())
	}

	a.selectUser(0)
	if got := a.cardTable.GetRowCount(); got != 3 {
		t.Errorf("rows after clearing filter = %d, want 3", got)
	}
}

func TestDetailText(t *testing.T) {
	it := service.NewItem(&domain.Record{
		ID:         "2",
		FullText:   "[red]second[-]",
		ScreenName: "bob",
		Name:       "Bob",
		QuotedStatus: &domain.QuotedTweet{
			Legacy: &domain.Legacy{FullText: "quoted line"},
		},
	})

	text := detailText(&it, nil, time.Now())

	if strings.Contains(text, "[red]second[-]") {
		t.Error("tweet text should be escaped for tview")
	}
	if !strings.Contains(text, "second") {
		t.Error("tweet text missing")
	}
	if !strings.Contains(text, "quoted line") {
		t.Error("quoted text missing")
	}
	if !strings.Contains(text, "https://twitter.com/bob/status/2") {
		t.Errorf("status URL missing: %q", text)
	}
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"a\n b\tc", 10, "a b c"},
		{"你好世界", 2, "你好…"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := oneLine(tt.in, tt.max); got != tt.want {
			t.Errorf("oneLine(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
