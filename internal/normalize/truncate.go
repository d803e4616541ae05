package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultTextBudget is the number of characters shown before a card collapses.
	DefaultTextBudget = 280

	// minWordCut is the position a space must lie beyond to be used as the cut point.
	minWordCut = 200

	// Ellipsis is appended to every truncated text.
	Ellipsis = "..."
)

var trailingURLPattern = regexp.MustCompile(`https?://\S*$`)

// NeedsTruncation reports whether text exceeds the default budget.
func NeedsTruncation(text string) bool {
	return utf8.RuneCountInString(text) > DefaultTextBudget
}

// Truncate shortens text to at most max characters plus an ellipsis. It
// never cuts inside a trailing URL and prefers to cut at a word boundary
// past minWordCut. Characters are counted as runes.
func Truncate(text string, max int) string {
	if max <= 0 {
		max = DefaultTextBudget
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := string(runes[:max])
	if loc := trailingURLPattern.FindStringIndex(cut); loc != nil {
		cut = strings.TrimSpace(cut[:loc[0]])
	} else if lastSpace := strings.LastIndex(cut, " "); lastSpace >= 0 {
		if utf8.RuneCountInString(cut[:lastSpace]) > minWordCut {
			cut = cut[:lastSpace]
		}
	}

	return cut + Ellipsis
}
