package render

import (
	"fmt"
	"strconv"
	"time"
)

// FormatNumber shortens engagement counters: 1234 -> "1.2K", 3400000 -> "3.4M".
func FormatNumber(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.Itoa(n)
	}
}

// RelativeTime renders how long ago t was, relative to now. A zero t
// renders as an empty string.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	days := int(diff.Hours()) / 24
	hours := int(diff.Hours())
	minutes := int(diff.Minutes())

	switch {
	case days > 0:
		return fmt.Sprintf("%d天前", days)
	case hours > 0:
		return fmt.Sprintf("%d小时前", hours)
	case minutes > 0:
		return fmt.Sprintf("%d分钟前", minutes)
	default:
		return "刚刚"
	}
}
