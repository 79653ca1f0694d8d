package core

import "time"

// ISODate is the wire format for calendar days.
const ISODate = "2006-01-02"

// StartOfDay truncates t to midnight of its calendar day. The result is in UTC
// so that days compare equal regardless of the location they were read in.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MonthBounds returns the first and last calendar day of the month containing t.
func MonthBounds(t time.Time) (first, last time.Time) {
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last = first.AddDate(0, 1, -1)
	return first, last
}

// WithinDays reports whether t falls on a day in [from, to], both inclusive.
func WithinDays(t, from, to time.Time) bool {
	day := StartOfDay(t)
	return !day.Before(StartOfDay(from)) && !day.After(StartOfDay(to))
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (time.Time, error) {
	return time.Parse(ISODate, s)
}

// ParseDay accepts either a YYYY-MM-DD date or an RFC3339 timestamp.
func ParseDay(s string) (time.Time, error) {
	if t, err := time.Parse(ISODate, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
