// Package normalize derives the canonical card model from export records.
//
// The upstream schema is not stable: the same logical attribute can live in
// several places. Each attribute is resolved by an ordered list of accessors,
// and the first non-empty result wins. The lists below are the only place
// where precedence is defined.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/occva/X-Bookmarks/internal/domain"
)

// Accessor reads one candidate value from a record. It must return "" when
// any level on its path is missing.
type Accessor func(r *domain.Record) string

// QuotedAccessor reads one candidate value from a quoted tweet.
type QuotedAccessor func(q *domain.QuotedTweet) string

// TextAccessors resolve the display text of a record.
var TextAccessors = []Accessor{
	func(r *domain.Record) string { return r.FullText },
	func(r *domain.Record) string {
		if r.Metadata == nil {
			return ""
		}
		return r.Metadata.NoteTweet.Text()
	},
	func(r *domain.Record) string {
		if r.Metadata == nil || r.Metadata.Legacy == nil {
			return ""
		}
		return r.Metadata.Legacy.FullText
	},
}

// NameAccessors resolve the author's display name.
var NameAccessors = []Accessor{
	func(r *domain.Record) string { return r.Name },
	userField(legacyName),
	userField(coreName),
	userField(func(u *domain.User) string { return u.Name }),
}

// ScreenNameAccessors resolve the author's handle.
var ScreenNameAccessors = []Accessor{
	func(r *domain.Record) string { return r.ScreenName },
	userField(legacyScreenName),
	userField(coreScreenName),
	userField(func(u *domain.User) string { return u.ScreenName }),
}

// AvatarAccessors resolve the author's profile image.
var AvatarAccessors = []Accessor{
	func(r *domain.Record) string { return r.ProfileImageURL },
	userField(avatarImage),
	userField(legacyAvatar),
	userField(func(u *domain.User) string { return u.ProfileImageURL }),
}

// QuotedTextAccessors resolve the text of a quoted tweet.
var QuotedTextAccessors = []QuotedAccessor{
	func(q *domain.QuotedTweet) string {
		if q.Legacy == nil {
			return ""
		}
		return q.Legacy.FullText
	},
	func(q *domain.QuotedTweet) string { return q.NoteTweet.Text() },
}

// QuotedNameAccessors resolve the quoted author's display name.
var QuotedNameAccessors = []QuotedAccessor{
	quotedUserField(legacyName),
	quotedUserField(coreName),
	quotedUserField(func(u *domain.User) string { return u.Name }),
}

// QuotedScreenNameAccessors resolve the quoted author's handle.
var QuotedScreenNameAccessors = []QuotedAccessor{
	quotedUserField(legacyScreenName),
	quotedUserField(coreScreenName),
	quotedUserField(func(u *domain.User) string { return u.ScreenName }),
}

// QuotedAvatarAccessors resolve the quoted author's profile image.
var QuotedAvatarAccessors = []QuotedAccessor{
	quotedUserField(avatarImage),
	quotedUserField(legacyAvatar),
	quotedUserField(func(u *domain.User) string { return u.ProfileImageURL }),
}

// QuotedIDAccessors resolve the quoted tweet's ID.
var QuotedIDAccessors = []QuotedAccessor{
	func(q *domain.QuotedTweet) string { return q.RestID },
	func(q *domain.QuotedTweet) string { return q.ID },
}

// First returns the first non-empty value produced by the accessors, or
// fallback when all of them come up empty.
func First(r *domain.Record, accessors []Accessor, fallback string) string {
	if r == nil {
		return fallback
	}
	for _, get := range accessors {
		if v := get(r); v != "" {
			return v
		}
	}
	return fallback
}

// FirstQuoted is First for quoted tweets.
func FirstQuoted(q *domain.QuotedTweet, accessors []QuotedAccessor, fallback string) string {
	if q == nil {
		return fallback
	}
	for _, get := range accessors {
		if v := get(q); v != "" {
			return v
		}
	}
	return fallback
}

// ExtractText returns the canonical display text of a record.
func ExtractText(r *domain.Record) string {
	return First(r, TextAccessors, "")
}

// ExtractIdentity returns the author identity of a record.
func ExtractIdentity(r *domain.Record) domain.Identity {
	return domain.Identity{
		Name:       First(r, NameAccessors, domain.UnknownUserName),
		ScreenName: First(r, ScreenNameAccessors, ""),
		Avatar:     First(r, AvatarAccessors, domain.DefaultAvatar),
	}
}

// ExtractQuotedIdentity returns the author identity of a quoted tweet. The
// avatar stays empty when none is found; the presentation layer picks its
// own placeholder.
func ExtractQuotedIdentity(q *domain.QuotedTweet) domain.Identity {
	return domain.Identity{
		Name:       FirstQuoted(q, QuotedNameAccessors, domain.UnknownUserName),
		ScreenName: FirstQuoted(q, QuotedScreenNameAccessors, ""),
		Avatar:     FirstQuoted(q, QuotedAvatarAccessors, ""),
	}
}

// Normalize derives the card for a record. It never fails; missing data
// yields empty values or placeholders.
func Normalize(r *domain.Record) domain.Card {
	if r == nil {
		return domain.Card{Author: ExtractIdentity(nil), Media: []domain.MediaItem{}}
	}

	author := ExtractIdentity(r)
	card := domain.Card{
		ID:             r.ID,
		URL:            tweetURL(r, author.ScreenName),
		Author:         author,
		Text:           ExtractText(r),
		RawCreatedAt:   r.CreatedAt,
		CreatedAt:      ParseTime(r.CreatedAt),
		Media:          ResolveMedia(r.Media),
		DuplicateCount: r.DuplicateCount,
		Counters: domain.Counters{
			Replies:   r.ReplyCount.Int(),
			Retweets:  r.RetweetCount.Int(),
			Likes:     r.FavoriteCount.Int(),
			Bookmarks: r.BookmarkCount.Int(),
			Quotes:    r.QuoteCount.Int(),
			Views:     r.ViewsCount.Int(),
		},
	}
	if card.DuplicateCount < 1 {
		card.DuplicateCount = 1
	}
	if card.RawCreatedAt == "" && r.Metadata != nil && r.Metadata.Legacy != nil {
		card.RawCreatedAt = r.Metadata.Legacy.CreatedAt
		card.CreatedAt = ParseTime(card.RawCreatedAt)
	}

	if q := r.Quoted(); q != nil {
		card.Quoted = NormalizeQuoted(q)
	}

	return card
}

// NormalizeQuoted derives the quoted-tweet sub-card.
func NormalizeQuoted(q *domain.QuotedTweet) *domain.QuotedCard {
	if q == nil {
		return nil
	}

	author := ExtractQuotedIdentity(q)
	id := FirstQuoted(q, QuotedIDAccessors, "")

	qc := &domain.QuotedCard{
		ID:     id,
		URL:    "#",
		Author: author,
		Text:   FirstQuoted(q, QuotedTextAccessors, ""),
		Media:  ResolveQuotedMedia(quotedMedia(q)),
	}
	if author.ScreenName != "" && id != "" {
		qc.URL = StatusURL(author.ScreenName, id)
	}
	if q.Legacy != nil {
		if t := ParseTime(q.Legacy.CreatedAt); !t.IsZero() {
			qc.Time = t.UTC().Format(time.RFC3339)
		}
	}
	return qc
}

// StatusURL builds the canonical link to a tweet.
func StatusURL(screenName, id string) string {
	return fmt.Sprintf("https://twitter.com/%s/status/%s", screenName, id)
}

// timeLayouts are tried in order when parsing created_at values.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RubyDate, // "Wed Oct 10 20:19:24 +0000 2018" as used by the upstream API
}

// ParseTime parses a created_at value in any of the formats seen in exports.
// It returns the zero time when nothing matches.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func tweetURL(r *domain.Record, screenName string) string {
	if r.URL != "" {
		return r.URL
	}
	if screenName == "" || r.ID == "" {
		return ""
	}
	return StatusURL(screenName, r.ID.String())
}

func quotedMedia(q *domain.QuotedTweet) []domain.Media {
	if q.Legacy == nil {
		return nil
	}
	if q.Legacy.ExtendedEntities != nil && len(q.Legacy.ExtendedEntities.Media) > 0 {
		return q.Legacy.ExtendedEntities.Media
	}
	if q.Legacy.Entities != nil {
		return q.Legacy.Entities.Media
	}
	return nil
}

func userField(get func(u *domain.User) string) Accessor {
	return func(r *domain.Record) string {
		u := r.User()
		if u == nil {
			return ""
		}
		return get(u)
	}
}

func quotedUserField(get func(u *domain.User) string) QuotedAccessor {
	return func(q *domain.QuotedTweet) string {
		u := q.Author()
		if u == nil {
			return ""
		}
		return get(u)
	}
}

func legacyName(u *domain.User) string {
	if u.Legacy == nil {
		return ""
	}
	return u.Legacy.Name
}

func legacyScreenName(u *domain.User) string {
	if u.Legacy == nil {
		return ""
	}
	return u.Legacy.ScreenName
}

func legacyAvatar(u *domain.User) string {
	if u.Legacy == nil {
		return ""
	}
	return u.Legacy.ProfileImageURLHTTPS
}

func coreName(u *domain.User) string {
	if u.Core == nil {
		return ""
	}
	return u.Core.Name
}

func coreScreenName(u *domain.User) string {
	if u.Core == nil {
		return ""
	}
	return u.Core.ScreenName
}

func avatarImage(u *domain.User) string {
	if u.Avatar == nil {
		return ""
	}
	return u.Avatar.ImageURL
}
