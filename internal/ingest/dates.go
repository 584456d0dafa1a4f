package ingest

import (
	"fmt"
	"strings"
	"time"
)

// sourceDateLayout matches the listing's "M/D HH:MM" dates once a year is prefixed.
const sourceDateLayout = "2006/1/2 15:04"

// ResolveDate turns a year-less source date into an instant. The source only
// reports past or same-day posts, so a result more than a day ahead of now means
// the post is from the previous year.
func ResolveDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now, fmt.Errorf("empty date")
	}

	year := now.Year()
	t, err := parseWithYear(value, year, now.Location())
	if err != nil {
		// 2/29 only parses in leap years; it can still belong to last year.
		prev, prevErr := parseWithYear(value, year-1, now.Location())
		if prevErr != nil {
			return now, err
		}
		return prev, nil
	}

	if t.After(now.Add(24 * time.Hour)) {
		prev, err := parseWithYear(value, year-1, now.Location())
		if err != nil {
			return now, fmt.Errorf("date %q does not exist in %d: %w", value, year-1, err)
		}
		return prev, nil
	}
	return t, nil
}

func parseWithYear(value string, year int, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(sourceDateLayout, fmt.Sprintf("%d/%s", year, value), loc)
}
