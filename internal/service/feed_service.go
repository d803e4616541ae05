package service

import (
	"context"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/occva/X-Bookmarks/internal/aggregate"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/ingest"
	"github.com/occva/X-Bookmarks/internal/metrics"
	"github.com/occva/X-Bookmarks/internal/normalize"
	"github.com/occva/X-Bookmarks/internal/recent"
	"github.com/occva/X-Bookmarks/internal/render"
)

// LoadRequest names the sources of one batch. Files are loaded before URLs.
type LoadRequest struct {
	Files []string `json:"files,omitempty"`
	URLs  []string `json:"urls,omitempty"`
}

// Sources returns the batch in load order.
func (r LoadRequest) Sources() []domain.Source {
	out := make([]domain.Source, 0, len(r.Files)+len(r.URLs))
	for _, f := range r.Files {
		out = append(out, domain.Source{Kind: domain.SourceFile, Location: f})
	}
	for _, u := range r.URLs {
		out = append(out, domain.Source{Kind: domain.SourceURL, Location: strings.TrimSpace(u)})
	}
	return out
}

// Empty reports whether the request names no sources.
func (r LoadRequest) Empty() bool {
	return len(r.Files) == 0 && len(r.URLs) == 0
}

// LoadOutcome reports a completed load.
type LoadOutcome struct {
	LoadID          string   `json:"load_id"`
	Records         int      `json:"records"`
	Distinct        int      `json:"distinct"`
	Skipped         int      `json:"skipped,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	Warning         string   `json:"warning,omitempty"`
	JSONFormatError bool     `json:"json_format_error"`
}

// Item is a card together with its rendered text.
type Item struct {
	domain.Card
	HTML        template.HTML `json:"html"`
	PreviewHTML template.HTML `json:"preview_html,omitempty"`
	QuotedHTML  template.HTML `json:"quoted_html,omitempty"`
	Layout      string        `json:"layout,omitempty"`
}

// Truncated reports whether the item has a shortened preview.
func (i *Item) Truncated() bool {
	return i.PreviewHTML != ""
}

// Snapshot is an immutable view of the working set.
type Snapshot struct {
	LoadID   string
	LoadedAt time.Time
	Request  LoadRequest
	Records  []domain.Record
	Items    []Item
	Stats    []domain.UserStat
	Images   []domain.ImageInfo
	Summary  aggregate.Summary
	Warning  string
}

// FeedService holds the current working set and runs loads.
type FeedService struct {
	loader *ingest.Loader
	recent recent.Store
	logger *slog.Logger

	mu      sync.RWMutex
	current *Snapshot
	lastReq LoadRequest
}

// NewFeedService creates a FeedService. store may be nil.
func NewFeedService(loader *ingest.Loader, store recent.Store, logger *slog.Logger) *FeedService {
	if store == nil {
		store = recent.NopStore{}
	}
	return &FeedService{
		loader:  loader,
		recent:  store,
		logger:  logger,
		current: &Snapshot{},
	}
}

// Load ingests req and, unless every source failed, replaces the working
// set. The outcome is returned on failure too so callers can report
// per-source errors.
func (s *FeedService) Load(ctx context.Context, req LoadRequest) (*LoadOutcome, error) {
	start := time.Now()
	metrics.LoadRuns.Inc()
	defer metrics.ObserveLoadDuration(start)

	res := s.loader.Load(ctx, req.Sources())

	outcome := &LoadOutcome{
		LoadID:          res.LoadID,
		Records:         len(res.Records),
		Skipped:         res.Skipped,
		Errors:          res.Messages(),
		Warning:         res.Warning(),
		JSONFormatError: res.HasJSONFormatError(),
	}

	if err := res.Err(); err != nil {
		s.logger.Warn("load failed",
			"load_id", res.LoadID,
			"sources", len(res.Sources),
			"error", err,
		)
		return outcome, err
	}

	snap := buildSnapshot(res.Records)
	snap.LoadID = res.LoadID
	snap.LoadedAt = time.Now()
	snap.Request = req
	snap.Warning = outcome.Warning
	outcome.Distinct = len(snap.Items)

	s.mu.Lock()
	s.current = snap
	s.lastReq = req
	s.mu.Unlock()

	metrics.WorkingSetSize.Set(float64(len(snap.Items)))
	s.remember(ctx, req, res)

	s.logger.Info("feed loaded",
		"load_id", res.LoadID,
		"records", outcome.Records,
		"distinct", outcome.Distinct,
		"failed_sources", len(res.Errors),
		"duration", time.Since(start),
	)
	return outcome, nil
}

// Reload repeats the last successful request.
func (s *FeedService) Reload(ctx context.Context) (*LoadOutcome, error) {
	s.mu.RLock()
	req := s.lastReq
	s.mu.RUnlock()

	if req.Empty() {
		return nil, domain.ErrNoSources
	}
	return s.Load(ctx, req)
}

// Snapshot returns the current working set.
func (s *FeedService) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Files returns the local files of the current working set.
func (s *FeedService) Files() []string {
	return append([]string(nil), s.Snapshot().Request.Files...)
}

// Cards returns a page of items, optionally restricted to one author
// (primary or quoted, case-insensitive), and the number of matching items.
func (s *FeedService) Cards(limit, offset int, user string) ([]Item, int) {
	items := s.Snapshot().Items

	if user = strings.TrimPrefix(strings.TrimSpace(user), "@"); user != "" {
		filtered := make([]Item, 0)
		for _, it := range items {
			if matchesUser(&it, user) {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	total := len(items)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Item{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return items[offset:end], total
}

// Card returns one item by tweet ID.
func (s *FeedService) Card(id string) (*Item, error) {
	for _, it := range s.Snapshot().Items {
		if it.ID.String() == id {
			return &it, nil
		}
	}
	return nil, domain.ErrTweetNotFound
}

// UserStats returns per-author counts, highest first.
func (s *FeedService) UserStats() []domain.UserStat {
	return s.Snapshot().Stats
}

// Images returns the gallery index.
func (s *FeedService) Images() []domain.ImageInfo {
	return s.Snapshot().Images
}

// Summary returns collection totals.
func (s *FeedService) Summary() aggregate.Summary {
	return s.Snapshot().Summary
}

// Recent lists remembered sources, newest first.
func (s *FeedService) Recent(ctx context.Context) ([]recent.Entry, error) {
	return s.recent.List(ctx)
}

// RemoveRecent forgets one remembered source.
func (s *FeedService) RemoveRecent(ctx context.Context, key string) error {
	return s.recent.Remove(ctx, key)
}

// ClearRecent forgets every remembered source.
func (s *FeedService) ClearRecent(ctx context.Context) error {
	return s.recent.Clear(ctx)
}

// remember records the sources that loaded, one entry per kind. Store
// failures never fail the load.
func (s *FeedService) remember(ctx context.Context, req LoadRequest, res *ingest.Result) {
	failed := make(map[int]bool, len(res.Errors))
	for _, e := range res.Errors {
		failed[e.Index] = true
	}

	var files, urls []string
	for i, src := range res.Sources {
		if failed[i] {
			continue
		}
		if src.Kind == domain.SourceFile {
			files = append(files, src.Location)
		} else {
			urls = append(urls, src.Location)
		}
	}

	for _, group := range []struct {
		kind domain.SourceKind
		locs []string
	}{
		{domain.SourceFile, files},
		{domain.SourceURL, urls},
	} {
		if len(group.locs) == 0 {
			continue
		}
		if err := s.recent.Add(ctx, recent.NewEntry(group.kind, group.locs)); err != nil {
			s.logger.Warn("failed to record recent source", "kind", group.kind, "error", err)
		}
	}
}

func buildSnapshot(records []domain.Record) *Snapshot {
	deduped := aggregate.Deduplicate(records)

	items := make([]Item, len(deduped))
	for i := range deduped {
		items[i] = NewItem(&deduped[i])
	}

	return &Snapshot{
		Records: deduped,
		Items:   items,
		Stats:   aggregate.ComputeUserStats(deduped),
		Images:  aggregate.Images(deduped),
		Summary: aggregate.Summarize(records),
	}
}

// NewItem normalizes r and renders its text.
func NewItem(r *domain.Record) Item {
	card := normalize.Normalize(r)
	it := Item{
		Card:   card,
		HTML:   render.FormatText(card.Text, r),
		Layout: normalize.GridLayout(len(card.Media)),
	}
	if normalize.NeedsTruncation(card.Text) {
		it.PreviewHTML = render.FormatText(normalize.Truncate(card.Text, normalize.DefaultTextBudget), r)
	}
	if card.Quoted != nil {
		it.QuotedHTML = render.FormatText(card.Quoted.Text, nil)
	}
	return it
}

func matchesUser(it *Item, user string) bool {
	if strings.EqualFold(it.Author.ScreenName, user) {
		return true
	}
	return it.Quoted != nil && strings.EqualFold(it.Quoted.Author.ScreenName, user)
}
