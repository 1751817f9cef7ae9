// Package dateutil provides date and duration parsing for registry data
// and configuration.
//
// Trial registries report dates at whatever precision the sponsor
// registered: a full date, a month, or just a year. ParseTrialDate accepts
// all three and fills missing components with the first month or day, so
// "2024" and "2024-01-01" compare equal. Configuration durations accept a
// day suffix ("5d") on top of the time.ParseDuration syntax, since cache
// retention is naturally counted in days.
//
// ParseTrialDate returns ok=false for empty or unparseable input; callers
// treat that as "no date" rather than an error.
package dateutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Registry date layouts in decreasing precision.
const (
	layoutDay   = "2006-01-02"
	layoutMonth = "2006-01"
	layoutYear  = "2006"
)

// ParseTrialDate parses a registry date string at day, month, or year
// precision. Returns false for empty or unparseable input.
func ParseTrialDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{layoutDay, layoutMonth, layoutYear} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatCutoff renders a time in the day-precision form registry range
// filters expect.
func FormatCutoff(t time.Time) string {
	return t.Format(layoutDay)
}

// ParseDuration accepts everything time.ParseDuration does plus a whole or
// fractional day suffix: "5d" is five days, "1.5d" is thirty-six hours.
func ParseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if trimmed, ok := strings.CutSuffix(s, "d"); ok {
		if days, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return time.Duration(days * float64(24*time.Hour)), nil
		}
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

// Year extracts the year of a registry date string, or 0 when the date is
// missing or unparseable.
func Year(s string) int {
	t, ok := ParseTrialDate(s)
	if !ok {
		return 0
	}
	return t.Year()
}
