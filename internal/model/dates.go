package model

import "time"

// DateLayout is the wire format of civil dates.
const DateLayout = "2006-01-02"

// DateOf returns the civil date of t (in t's location) as midnight UTC,
// which is how DATE columns round-trip through pgx.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
