package domain

import "time"

// Range is a half-open [Begin, End) time filter. A nil bound is unrestricted.
type Range struct {
	Begin *time.Time
	End   *time.Time
}

// Between returns a range bounded on both sides.
func Between(begin, end time.Time) Range {
	return Range{Begin: &begin, End: &end}
}

// AllTime returns an unrestricted range.
func AllTime() Range {
	return Range{}
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if r.Begin != nil && t.Before(*r.Begin) {
		return false
	}
	if r.End != nil && !t.Before(*r.End) {
		return false
	}
	return true
}
