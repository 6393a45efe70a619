// Package dates enumerates calendar days and expands URL templates into
// probe targets.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the accepted date format.
const Layout = "2006-01-02"

// Template tokens replaced by Expand.
const (
	TokenYear  = "{YYYY}"
	TokenMonth = "{MM}"
	TokenDay   = "{DD}"
)

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// Days returns every calendar day from start to end inclusive. The time of
// day is ignored. It returns nil when end is before start.
func Days(start, end time.Time) []time.Time {
	start = truncate(start)
	end = truncate(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Expand substitutes the zero-padded year, month and day of d for every
// occurrence of the template tokens.
func Expand(template string, d time.Time) string {
	r := strings.NewReplacer(
		TokenYear, fmt.Sprintf("%04d", d.Year()),
		TokenMonth, fmt.Sprintf("%02d", int(d.Month())),
		TokenDay, fmt.Sprintf("%02d", d.Day()),
	)
	return r.Replace(template)
}

// Targets returns one URL per day in [start, end], in date order.
func Targets(template string, start, end time.Time) []string {
	days := Days(start, end)
	targets := make([]string, 0, len(days))
	for _, d := range days {
		targets = append(targets, Expand(template, d))
	}
	return targets
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
