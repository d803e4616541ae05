package domain

import "time"

// UnknownUserName is shown when no name can be found anywhere in a record.
const UnknownUserName = "未知用户"

// DefaultAvatar is an inline dark square used when a record has no avatar.
const DefaultAvatar = "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='40' height='40'%3E%3Crect width='40' height='40' fill='%23333'/%3E%3C/svg%3E"

// SmallAvatar is the placeholder used for quoted-tweet authors.
const SmallAvatar = "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='20' height='20'%3E%3Crect width='20' height='20' fill='%23333'/%3E%3C/svg%3E"

// Identity is the author as presented on a card.
type Identity struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	Avatar     string `json:"avatar"`
}

// MediaItem is a resolved media entry. At least one of Original and
// Thumbnail is non-empty.
type MediaItem struct {
	Type      string `json:"type,omitempty"`
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

// Counters are the engagement metrics shown on a card.
type Counters struct {
	Replies   int `json:"replies"`
	Retweets  int `json:"retweets"`
	Likes     int `json:"likes"`
	Bookmarks int `json:"bookmarks"`
	Quotes    int `json:"quotes,omitempty"`
	Views     int `json:"views,omitempty"`
}

// Card is the canonical rendering model derived from a Record.
type Card struct {
	ID             TweetID     `json:"id"`
	URL            string      `json:"url"`
	Author         Identity    `json:"author"`
	Text           string      `json:"text"`
	CreatedAt      time.Time   `json:"created_at,omitempty"`
	RawCreatedAt   string      `json:"raw_created_at,omitempty"`
	Media          []MediaItem `json:"media"`
	Counters       Counters    `json:"counters"`
	DuplicateCount int         `json:"duplicate_count"`
	Quoted         *QuotedCard `json:"quoted,omitempty"`
}

// QuotedCard is the rendering model for a quoted tweet.
type QuotedCard struct {
	ID     string      `json:"id"`
	URL    string      `json:"url"`
	Author Identity    `json:"author"`
	Text   string      `json:"text"`
	Time   string      `json:"time,omitempty"`
	Media  []MediaItem `json:"media"`
}

// HasMedia returns true if the card has any resolved media.
func (c *Card) HasMedia() bool {
	return len(c.Media) > 0
}

// IsDuplicate returns true if the tweet appeared more than once across sources.
func (c *Card) IsDuplicate() bool {
	return c.DuplicateCount > 1
}

// UserStat is the number of appearances of one author across the feed.
type UserStat struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	Count      int    `json:"count"`
}

// ImageInfo is one image in the feed-wide gallery.
type ImageInfo struct {
	URL     string  `json:"url"`
	TweetID TweetID `json:"tweet_id"`
	Index   int     `json:"index"`
}
