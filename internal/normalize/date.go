package normalize

import (
	"strings"
	"time"
)

// ISODate is the canonical date layout.
const ISODate = "2006-01-02"

// dateLayouts are tried in order; the first successful parse wins.
// MM/DD/YYYY, YYYY-MM-DD, MM-DD-YYYY, DD/MM/YYYY.
var dateLayouts = []string{
	"1/2/2006",
	"2006-1-2",
	"1-2-2006",
	"2/1/2006",
}

// NormalizeDate converts a source date to YYYY-MM-DD. If no layout
// matches, the original string is returned unchanged.
func NormalizeDate(s string) string {
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(ISODate)
		}
	}
	return s
}

// ParseISODate parses a canonical date.
func ParseISODate(s string) (time.Time, bool) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
