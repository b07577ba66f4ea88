package utils

import (
	"errors"
	"strings"
	"time"
)

// DayLayout is the calendar date format used by filters and CSV imports.
const DayLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DayLayout,
}

// ParseISODateTime accepts ISO-8601 with or without offset, seconds or time
// component. Values without an offset are taken as UTC.
func ParseISODateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// ParseDay parses a strict YYYY-MM-DD date at UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// DayRange returns the half-open UTC interval [start, start+24h) containing t.
func DayRange(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
