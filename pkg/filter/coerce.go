package filter

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Month, day and hour may be written with or without a leading zero.
const dateOnlyLayout = "2006-1-2"

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2T15:04:05Z07:00",
	"2006-1-2T15:04:05",
	"2006-1-2T15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
}

// ParseDate parses s as a calendar date (YYYY-M-D) or a date-time. Bare
// numbers are never dates. Values without an offset are taken as UTC.
func ParseDate(s string) (t time.Time, dateOnly bool, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(dateOnlyLayout) {
		return time.Time{}, false, false
	}
	if t, err := time.Parse(dateOnlyLayout, s); err == nil {
		return t.UTC(), true, true
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, true
		}
	}
	return time.Time{}, false, false
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59:59.999 UTC of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}

// Coerce infers the type of a query-string scalar: date, then number, then
// boolean, else the string itself.
func Coerce(s string) any {
	if t, _, ok := ParseDate(s); ok {
		return t
	}
	if n, ok := parseNumber(s); ok {
		return n
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func parseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}
