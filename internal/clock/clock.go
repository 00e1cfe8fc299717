// Package clock abstracts the wall clock so batch runs can be replayed
// for a given date and tested deterministically.
package clock

import "time"

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock, observed in a fixed location.
type System struct {
	Location *time.Location
}

// Now returns the current time in the clock's location (UTC when unset).
func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(s.Location)
}

// Fixed always reports the same instant.
type Fixed time.Time

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return time.Time(f) }

// Date returns a Fixed clock set to midnight UTC on the given day.
func Date(year int, month time.Month, day int) Fixed {
	return Fixed(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Today truncates t to its calendar day, expressed as midnight UTC.
// Calendar dates are stored this way so that comparisons do not depend
// on the server's zone.
func Today(c Clock) time.Time {
	return DateOf(c.Now())
}

// DateOf returns midnight UTC of t's calendar day in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
