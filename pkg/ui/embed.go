// Package ui provides the embedded HTML feed page shared by the local
// viewer and the static export.
package ui

import (
	_ "embed"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/occva/X-Bookmarks/internal/aggregate"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/normalize"
	"github.com/occva/X-Bookmarks/internal/render"
	"github.com/occva/X-Bookmarks/internal/service"
)

// DefaultTitle is the page heading.
const DefaultTitle = "X 书签"

// FeedHTML is the feed page template source.
//
//go:embed feed.html
var FeedHTML string

// Page is the data rendered by the feed template.
type Page struct {
	Title   string
	Items   []service.Item
	Stats   []domain.UserStat
	Summary aggregate.Summary
	Warning string
	User    string
	Total   int
	Offset  int
	Limit   int
	// Static pages have no pagination or filter links.
	Static bool
	Now    time.Time

	// Base is the path the page is served from.
	Base string
}

// NewPage builds a page of the service's current working set. A limit of
// zero renders every matching item.
func NewPage(svc *service.FeedService, user string, limit, offset int) *Page {
	snap := svc.Snapshot()
	items, total := svc.Cards(limit, offset, user)
	return &Page{
		Title:   DefaultTitle,
		Items:   items,
		Stats:   snap.Stats,
		Summary: snap.Summary,
		Warning: snap.Warning,
		User:    strings.TrimPrefix(strings.TrimSpace(user), "@"),
		Total:   total,
		Offset:  offset,
		Limit:   limit,
		Now:     time.Now(),
		Base:    "/",
	}
}

// PrevURL links to the previous page, or is empty on the first page.
func (p *Page) PrevURL() string {
	if p.Static || p.Limit <= 0 || p.Offset <= 0 {
		return ""
	}
	prev := p.Offset - p.Limit
	if prev < 0 {
		prev = 0
	}
	return p.link(p.User, prev)
}

// NextURL links to the next page, or is empty on the last page.
func (p *Page) NextURL() string {
	if p.Static || p.Limit <= 0 || p.Offset+p.Limit >= p.Total {
		return ""
	}
	return p.link(p.User, p.Offset+p.Limit)
}

// UserURL filters the feed to one author.
func (p *Page) UserURL(screenName string) string {
	return p.link(screenName, 0)
}

// ClearURL removes the author filter.
func (p *Page) ClearURL() string {
	return p.link("", 0)
}

func (p *Page) link(user string, offset int) string {
	q := url.Values{}
	if user != "" {
		q.Set("user", user)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if len(q) == 0 {
		return p.Base
	}
	return p.Base + "?" + q.Encode()
}

var feedTemplate = template.Must(template.New("feed").Funcs(template.FuncMap{
	"formatNumber": render.FormatNumber,
	"gridLayout":   normalize.GridLayout,
	"relTime":      render.RelativeTime,
	"avatar":       avatarURL,
}).Parse(FeedHTML))

// Render writes the feed page for p.
func Render(w io.Writer, p *Page) error {
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	if p.Base == "" {
		p.Base = "/"
	}
	return feedTemplate.Execute(w, p)
}

// avatarURL lets the built-in placeholder avatars through the template's
// URL filter. Anything else is filtered as usual.
func avatarURL(s string) any {
	if s == domain.DefaultAvatar || s == domain.SmallAvatar {
		return template.URL(s)
	}
	return s
}
