// Package aggregate derives collection-level views from loaded records:
// deduplication, per-user counts, an image index and summary totals.
package aggregate

import (
	"sort"
	"strings"

	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/normalize"
)

// Deduplicate groups records by ID. The output keeps first-seen order and the
// first occurrence's data, with DuplicateCount set to the number of
// occurrences. The input slice is not modified.
func Deduplicate(records []domain.Record) []domain.Record {
	index := make(map[domain.TweetID]int, len(records))
	out := make([]domain.Record, 0, len(records))

	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i].DuplicateCount++
			continue
		}
		r.DuplicateCount = 1
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}

// ComputeUserStats counts records per author across primary and quoted
// authors. Screen names are compared case-insensitively; the display name and
// screen name come from the first encounter. Results are ordered by count,
// highest first, with ties kept in encounter order.
func ComputeUserStats(records []domain.Record) []domain.UserStat {
	index := make(map[string]int)
	var stats []domain.UserStat

	add := func(id domain.Identity) {
		if id.ScreenName == "" {
			return
		}
		key := strings.ToLower(id.ScreenName)
		if i, ok := index[key]; ok {
			stats[i].Count++
			return
		}
		index[key] = len(stats)
		stats = append(stats, domain.UserStat{
			Name:       id.Name,
			ScreenName: id.ScreenName,
			Count:      1,
		})
	}

	for i := range records {
		r := &records[i]
		add(normalize.ExtractIdentity(r))
		if q := r.Quoted(); q != nil {
			add(normalize.ExtractQuotedIdentity(q))
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})
	return stats
}

// Images flattens every record's media into a gallery index. Entries use
// the original URL, falling back to the thumbnail.
func Images(records []domain.Record) []domain.ImageInfo {
	var out []domain.ImageInfo
	for i := range records {
		r := &records[i]
		for idx, m := range normalize.ResolveMedia(r.Media) {
			url := m.Original
			if url == "" {
				url = m.Thumbnail
			}
			out = append(out, domain.ImageInfo{
				URL:     url,
				TweetID: r.ID,
				Index:   idx,
			})
		}
	}
	return out
}

// Summary holds collection totals.
type Summary struct {
	Total      int `json:"total"`
	Distinct   int `json:"distinct"`
	Duplicated int `json:"duplicated"`
	Users      int `json:"users"`
	Media      int `json:"media"`
	WithQuotes int `json:"with_quotes"`
}

// Summarize computes totals over raw (not yet deduplicated) records.
func Summarize(records []domain.Record) Summary {
	deduped := Deduplicate(records)

	s := Summary{
		Total:    len(records),
		Distinct: len(deduped),
		Users:    len(ComputeUserStats(deduped)),
		Media:    len(Images(deduped)),
	}
	for i := range deduped {
		if deduped[i].DuplicateCount > 1 {
			s.Duplicated++
		}
		if deduped[i].Quoted() != nil {
			s.WithQuotes++
		}
	}
	return s
}
