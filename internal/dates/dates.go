// Package dates derives the local calendar-day keys that index the ledger.
// The same helpers are used by the tracker and by report clients so that
// "today", "yesterday" and the weekly window mean the same thing on both sides.
package dates

import (
	"fmt"
	"time"
)

// Layout is the format of a ledger date key (YYYY-MM-DD).
const Layout = "2006-01-02"

// WeekDays is the number of calendar days in the weekly window.
const WeekDays = 7

// Key returns the date key for t in t's location.
func Key(t time.Time) string {
	return t.Format(Layout)
}

// Today returns the date key of now.
func Today(now time.Time) string {
	return Key(now)
}

// Yesterday returns the date key of the calendar day before now.
func Yesterday(now time.Time) string {
	return Key(daysBefore(now, 1))
}

// Week returns the keys of today and the six preceding calendar days,
// most recent first.
func Week(now time.Time) []string {
	keys := make([]string, 0, WeekDays)
	for i := 0; i < WeekDays; i++ {
		keys = append(keys, Key(daysBefore(now, i)))
	}
	return keys
}

// Parse parses a date key as midnight in the local time zone.
func Parse(key string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", key, err)
	}
	return t, nil
}

// Valid reports whether key is a well-formed date key.
func Valid(key string) bool {
	_, err := Parse(key)
	return err == nil
}

// daysBefore steps back n calendar days. Anchoring at noon keeps the result on
// the intended day across DST transitions.
func daysBefore(now time.Time, n int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()-n, 12, 0, 0, 0, now.Location())
}
