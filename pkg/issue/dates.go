package issue

import (
	"strconv"
	"time"
)

// dateLayouts covers the date formats the supported trackers return.
// Jira uses a zoneless millisecond variant, Bugzilla and the git forges use
// RFC 3339, Redmine omits the sub-second part.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
}

// ParseTime returns the UTC-normalized time parsed from a tracker date
// string. Pagure returns epoch seconds as strings. Unparseable input yields
// the zero time.
func ParseTime(date string) time.Time {
	if date == "" {
		return time.Time{}
	}
	if secs, err := strconv.ParseInt(date, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
