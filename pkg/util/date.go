// Package util holds small parsing helpers shared by use cases.
package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order by ParseTime.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseTime accepts RFC 3339, a bare date (UTC midnight) or unix seconds.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
		return time.Unix(sec, 0).UTC(), true
	}
	return time.Time{}, false
}

func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ResolveRange turns an optional from/to pair into [from, to]. Missing ends
// default to now and to-window; a reversed pair is swapped.
func ResolveRange(from, to string, now time.Time, window time.Duration) (time.Time, time.Time) {
	end := ParseTimeDefault(to, now)
	start := ParseTimeDefault(from, end.Add(-window))
	if start.After(end) {
		return end, start
	}
	return start, end
}

// ParseBirthdate splits "YYYY-MM-DD", rejecting impossible dates.
func ParseBirthdate(s string) (year, month, day int, err error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid birthdate %q: %w", s, err)
	}
	return t.Year(), int(t.Month()), t.Day(), nil
}

// ParseBirthtime splits a 24h "HH:MM".
func ParseBirthtime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid birthtime %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
