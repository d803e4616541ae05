package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// TweetID is a unique identifier for a bookmarked tweet.
type TweetID string

// String returns the string representation of the TweetID.
func (id TweetID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both string and numeric IDs. Exports produced by
// older tools write the ID as a bare number. Any other JSON type yields an
// empty ID without an error so the rest of the record still decodes.
func (id *TweetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*id = ""
	if len(data) == 0 {
		return nil
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*id = TweetID(s)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*id = TweetID(n.String())
		}
	}
	return nil
}

// Count is an engagement counter. It tolerates numbers, numeric strings,
// floats and null, and never goes negative.
type Count int

// Int returns the counter as an int.
func (c Count) Int() int {
	return int(c)
}

// UnmarshalJSON implements lenient counter decoding.
func (c *Count) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable counters degrade to zero rather than rejecting the record.
		*c = 0
		return nil
	}
	switch {
	case math.IsNaN(f) || f <= 0:
		*c = 0
	case f >= math.MaxInt:
		*c = Count(math.MaxInt)
	default:
		*c = Count(int(f))
	}
	return nil
}

// Record is one bookmarked tweet exactly as it appears in an export file.
// Most fields are optional; the nested Metadata carries the upstream
// GraphQL shape, which offers several paths to the same logical value.
type Record struct {
	ID              TweetID      `json:"id"`
	CreatedAt       string       `json:"created_at,omitempty"`
	FullText        string       `json:"full_text,omitempty"`
	Media           []Media      `json:"media,omitempty"`
	ScreenName      string       `json:"screen_name,omitempty"`
	Name            string       `json:"name,omitempty"`
	ProfileImageURL string       `json:"profile_image_url,omitempty"`
	UserID          string       `json:"user_id,omitempty"`
	URL             string       `json:"url,omitempty"`
	InReplyTo       string       `json:"in_reply_to,omitempty"`
	QuotedStatus    *QuotedTweet `json:"quoted_status,omitempty"`
	Metadata        *Metadata    `json:"metadata,omitempty"`

	FavoriteCount Count `json:"favorite_count,omitempty"`
	RetweetCount  Count `json:"retweet_count,omitempty"`
	BookmarkCount Count `json:"bookmark_count,omitempty"`
	QuoteCount    Count `json:"quote_count,omitempty"`
	ReplyCount    Count `json:"reply_count,omitempty"`
	ViewsCount    Count `json:"views_count,omitempty"`

	// DuplicateCount is assigned during aggregation. It is never read from
	// source data.
	DuplicateCount int `json:"-"`
}

// Metadata is the upstream provider's original nested tweet object.
type Metadata struct {
	Typename           string              `json:"__typename,omitempty"`
	RestID             string              `json:"rest_id,omitempty"`
	Legacy             *Legacy             `json:"legacy,omitempty"`
	NoteTweet          *NoteTweet          `json:"note_tweet,omitempty"`
	QuotedStatusResult *QuotedStatusResult `json:"quoted_status_result,omitempty"`
	Core               *TweetCore          `json:"core,omitempty"`
}

// Legacy is the v1.1-style tweet body nested inside GraphQL results.
type Legacy struct {
	FullText         string    `json:"full_text,omitempty"`
	CreatedAt        string    `json:"created_at,omitempty"`
	Entities         *Entities `json:"entities,omitempty"`
	ExtendedEntities *Entities `json:"extended_entities,omitempty"`
}

// Entities holds URL and media entities.
type Entities struct {
	URLs  []URLEntity `json:"urls,omitempty"`
	Media []Media     `json:"media,omitempty"`
}

// NoteTweet carries long-form ("note") text.
type NoteTweet struct {
	NoteTweetResults *struct {
		Result *struct {
			Text string `json:"text,omitempty"`
		} `json:"result,omitempty"`
	} `json:"note_tweet_results,omitempty"`
}

// Text returns the note text, or "" when any level is missing.
func (n *NoteTweet) Text() string {
	if n == nil || n.NoteTweetResults == nil || n.NoteTweetResults.Result == nil {
		return ""
	}
	return n.NoteTweetResults.Result.Text
}

// QuotedStatusResult wraps the quoted tweet in GraphQL responses.
type QuotedStatusResult struct {
	Result *QuotedTweet `json:"result,omitempty"`
}

// TweetCore wraps the author in GraphQL responses.
type TweetCore struct {
	UserResults *struct {
		Result *User `json:"result,omitempty"`
	} `json:"user_results,omitempty"`
}

// User returns the nested author, or nil when any level is missing.
func (c *TweetCore) User() *User {
	if c == nil || c.UserResults == nil {
		return nil
	}
	return c.UserResults.Result
}

// User is an author object in any of the shapes the upstream has used.
type User struct {
	Legacy *struct {
		Name                 string `json:"name,omitempty"`
		ScreenName           string `json:"screen_name,omitempty"`
		ProfileImageURLHTTPS string `json:"profile_image_url_https,omitempty"`
	} `json:"legacy,omitempty"`
	Core *struct {
		Name       string `json:"name,omitempty"`
		ScreenName string `json:"screen_name,omitempty"`
	} `json:"core,omitempty"`
	Avatar *struct {
		ImageURL string `json:"image_url,omitempty"`
	} `json:"avatar,omitempty"`
	Name            string `json:"name,omitempty"`
	ScreenName      string `json:"screen_name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// QuotedTweet is a reduced record embedded in a bookmark.
type QuotedTweet struct {
	Legacy    *Legacy    `json:"legacy,omitempty"`
	NoteTweet *NoteTweet `json:"note_tweet,omitempty"`
	Core      *TweetCore `json:"core,omitempty"`
	User      *User      `json:"user,omitempty"`
	RestID    string     `json:"rest_id,omitempty"`
	ID        string     `json:"id,omitempty"`
}

// Media is a raw media entry. Exports use different URL fields depending
// on where the entry came from.
type Media struct {
	Type          string `json:"type,omitempty"`
	URL           string `json:"url,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Original      string `json:"original,omitempty"`
	MediaURLHTTPS string `json:"media_url_https,omitempty"`
}

// URLEntity maps a shortened link in the text to its destination.
type URLEntity struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url,omitempty"`
}

// User returns the nested author of the record, or nil.
func (r *Record) User() *User {
	if r == nil || r.Metadata == nil {
		return nil
	}
	return r.Metadata.Core.User()
}

// Quoted returns the quoted tweet, preferring the GraphQL location.
func (r *Record) Quoted() *QuotedTweet {
	if r == nil {
		return nil
	}
	if r.Metadata != nil && r.Metadata.QuotedStatusResult != nil && r.Metadata.QuotedStatusResult.Result != nil {
		return r.Metadata.QuotedStatusResult.Result
	}
	return r.QuotedStatus
}

// URLEntities returns the link entities used to resolve short URLs in the
// text. entities.urls wins over extended_entities.urls.
func (r *Record) URLEntities() []URLEntity {
	if r == nil || r.Metadata == nil || r.Metadata.Legacy == nil {
		return nil
	}
	l := r.Metadata.Legacy
	if l.Entities != nil && len(l.Entities.URLs) > 0 {
		return l.Entities.URLs
	}
	if l.ExtendedEntities != nil && len(l.ExtendedEntities.URLs) > 0 {
		return l.ExtendedEntities.URLs
	}
	return nil
}

// Author returns the nested author of the quoted tweet, or nil.
func (q *QuotedTweet) Author() *User {
	if q == nil {
		return nil
	}
	if u := q.Core.User(); u != nil {
		return u
	}
	return q.User
}
