// Package render turns normalized tweet data into presentation-ready values.
package render

import (
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"github.com/occva/X-Bookmarks/internal/domain"
)

const (
	profileBaseURL = "https://twitter.com/"
	hashtagBaseURL = "https://twitter.com/hashtag/"

	// Placeholders use private-use code points so they cannot collide with
	// text from the export, and contain neither '@' nor '#'.
	placeholderOpen  = "\uE000LINK"
	placeholderClose = "\uE001"
)

var (
	urlPattern         = regexp.MustCompile(`https?://\S+`)
	mentionPattern     = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)
	hashtagPattern     = regexp.MustCompile(`#([a-zA-Z0-9_]+)`)
	placeholderPattern = regexp.MustCompile("\uE000LINK([0-9]+)\uE001")

	// placeholderStripper removes the placeholder delimiters from input text
	// so only anchors inserted by FormatText are ever restored.
	placeholderStripper = strings.NewReplacer("\uE000", "", "\uE001", "")

	// textEscaper escapes the characters that matter in element content and
	// double-quoted attributes. The apostrophe is left alone because its
	// numeric entity contains '#', which the hashtag pass would pick up.
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)

	// attrEscaper is used for values taken from URL entities.
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
)

// LinkMap resolves shortened URLs found in tweet text.
type LinkMap struct {
	expanded map[string]string
	display  map[string]string
}

// NewLinkMap builds a LinkMap from a record's URL entities. Entities missing
// either the short or the expanded URL are ignored.
func NewLinkMap(r *domain.Record) LinkMap {
	m := LinkMap{
		expanded: make(map[string]string),
		display:  make(map[string]string),
	}
	for _, e := range r.URLEntities() {
		if e.URL == "" || e.ExpandedURL == "" {
			continue
		}
		m.expanded[e.URL] = e.ExpandedURL
		if e.DisplayURL != "" {
			m.display[e.URL] = e.DisplayURL
		}
	}
	return m
}

// Resolve returns the link target and label for a URL found in the text.
func (m LinkMap) Resolve(short string) (href, label string) {
	expanded, ok := m.expanded[short]
	if !ok {
		return short, short
	}
	if d := m.display[short]; d != "" {
		return expanded, d
	}
	if expanded != short {
		return expanded, expanded
	}
	return expanded, short
}

// FormatText converts raw tweet text into safe markup with linked URLs,
// mentions and hashtags. The text body is escaped before any markup is
// inserted; URL anchors are held back as placeholders until the mention and
// hashtag passes are done so those passes never see anchor markup.
func FormatText(text string, r *domain.Record) template.HTML {
	if text == "" {
		return ""
	}

	links := NewLinkMap(r)
	formatted := textEscaper.Replace(placeholderStripper.Replace(text))

	var anchors []string
	formatted = urlPattern.ReplaceAllStringFunc(formatted, func(match string) string {
		// The match was taken from escaped text; look it up in its raw form.
		raw := unescapeText(match)
		href, label := links.Resolve(raw)
		anchors = append(anchors, anchor(attrEscaper.Replace(href), attrEscaper.Replace(label)))
		return placeholderOpen + strconv.Itoa(len(anchors)-1) + placeholderClose
	})

	formatted = mentionPattern.ReplaceAllStringFunc(formatted, func(match string) string {
		handle := match[1:]
		return anchor(profileBaseURL+handle, "@"+handle)
	})

	formatted = hashtagPattern.ReplaceAllStringFunc(formatted, func(match string) string {
		tag := match[1:]
		return anchor(hashtagBaseURL+tag, "#"+tag)
	})

	formatted = placeholderPattern.ReplaceAllStringFunc(formatted, func(match string) string {
		idx, err := strconv.Atoi(placeholderPattern.FindStringSubmatch(match)[1])
		if err != nil || idx >= len(anchors) {
			return ""
		}
		return anchors[idx]
	})

	return template.HTML(formatted)
}

// ExpandLinks replaces shortened URLs in plain text with their display form.
// It is the plain-text counterpart of FormatText for terminal output.
func ExpandLinks(text string, r *domain.Record) string {
	links := NewLinkMap(r)
	return urlPattern.ReplaceAllStringFunc(text, func(match string) string {
		_, label := links.Resolve(match)
		return label
	})
}

func anchor(href, label string) string {
	return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer" class="tweet-link">%s</a>`, href, label)
}

var textUnescaper = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
)

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
