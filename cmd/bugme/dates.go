package main

import (
	"fmt"
	"time"
)

// timeago renders the distance to a date in the largest round unit.
func timeago(date time.Time) string {
	seconds := int(time.Since(date).Seconds())
	ago := "ago"
	if seconds < 0 {
		ago = "in the future"
		seconds = -seconds
	}

	units := []struct {
		name    string
		divisor int
	}{
		{name: "second", divisor: 60},
		{name: "minute", divisor: 60},
		{name: "hour", divisor: 24},
		{name: "day", divisor: 30},
		{name: "month", divisor: 12},
	}
	value := seconds
	for _, unit := range units {
		if value < unit.divisor {
			return fmt.Sprintf("%d %s%s %s", value, unit.name, plural(value), ago)
		}
		value /= unit.divisor
	}
	return fmt.Sprintf("%d year%s %s", value, plural(value), ago)
}

func plural(value int) string {
	if value == 1 {
		return ""
	}
	return "s"
}

// dateit renders a date either as relative time or with the given strftime
// style layout. Unknown dates print as "not yet".
func dateit(date time.Time, timeFormat string) string {
	if date.IsZero() {
		return "not yet"
	}
	local := date.Local()
	if timeFormat == "timeago" {
		return timeago(local)
	}
	return local.Format(timeFormat)
}
