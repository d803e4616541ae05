package normalize

import (
	"strings"

	"github.com/occva/X-Bookmarks/internal/domain"
)

// Grid layouts for media blocks. There are exactly three multi-item tiers.
const (
	LayoutNone   = ""
	LayoutSingle = "single"
	LayoutTwo    = "grid-2"
	LayoutThree  = "grid-3"
	LayoutFour   = "grid-4" // four or more
)

// ResolveMedia maps raw media entries to original/thumbnail pairs, each
// falling back to the other, and drops entries with no usable URL.
func ResolveMedia(raw []domain.Media) []domain.MediaItem {
	items := make([]domain.MediaItem, 0, len(raw))
	for _, m := range raw {
		original := firstNonEmpty(m.Original, m.Thumbnail)
		thumbnail := firstNonEmpty(m.Thumbnail, m.Original)
		if original == "" && thumbnail == "" {
			continue
		}
		items = append(items, domain.MediaItem{
			Type:      m.Type,
			Original:  original,
			Thumbnail: thumbnail,
		})
	}
	return items
}

// ResolveQuotedMedia resolves media nested in a quoted tweet. Those entries
// come from the upstream entity lists, where the image lives in
// media_url_https and url is usually a short link.
func ResolveQuotedMedia(raw []domain.Media) []domain.MediaItem {
	items := make([]domain.MediaItem, 0, len(raw))
	for _, m := range raw {
		original := firstNonEmpty(m.MediaURLHTTPS, m.URL, m.Original)
		thumbnail := firstNonEmpty(m.MediaURLHTTPS, m.URL, m.Thumbnail)
		if original == "" && thumbnail == "" {
			continue
		}
		items = append(items, domain.MediaItem{
			Type:      m.Type,
			Original:  original,
			Thumbnail: thumbnail,
		})
	}
	return items
}

// GridLayout returns the layout class for a media block with n items.
func GridLayout(n int) string {
	switch {
	case n <= 0:
		return LayoutNone
	case n == 1:
		return LayoutSingle
	case n == 2:
		return LayoutTwo
	case n == 3:
		return LayoutThree
	default:
		return LayoutFour
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
