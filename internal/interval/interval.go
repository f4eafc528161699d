// Package interval compares half-open date ranges whose end may be absent.
//
// An Interval covers [Start, End). A nil End means the range never closes, so it
// conflicts with every range that starts at or after Start.
package interval

import "time"

type Interval struct {
	Start time.Time
	End   *time.Time
}

func New(start time.Time, end *time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Instant is the degenerate interval covering exactly t.
func Instant(t time.Time) Interval {
	end := t.Add(time.Nanosecond)
	return Interval{Start: t, End: &end}
}

func (i Interval) IsOpen() bool {
	return i.End == nil
}

// Valid reports whether End, when present, is strictly after Start.
func (i Interval) Valid() bool {
	return i.End == nil || i.End.After(i.Start)
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return Overlaps(i, Instant(t))
}

// Overlaps reports whether a and b share at least one instant. Adjacent
// intervals (a.End == b.Start) do not overlap.
func Overlaps(a, b Interval) bool {
	return startsBeforeEnd(a.Start, b.End) && startsBeforeEnd(b.Start, a.End)
}

func startsBeforeEnd(start time.Time, end *time.Time) bool {
	if end == nil {
		return true
	}
	return start.Before(*end)
}
