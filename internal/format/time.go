// Package format converts timestamps and numbers between their storage,
// user input and display representations.
package format

import (
	"errors"
	"fmt"
	"time"
)

// StorageLayout is the canonical UTC encoding used for persisted timestamps.
const StorageLayout = "2006-01-02 15:04:05"

// Pattern selects one of the fixed user-facing time layouts.
type Pattern string

const (
	// PatternShort renders hour and minute only.
	PatternShort Pattern = "15:04"
	// PatternLong renders day, abbreviated month, hour and minute.
	PatternLong Pattern = "02 Jan 15:04"
)

// ErrInvalidFormat is returned when a stored timestamp does not match StorageLayout exactly.
var ErrInvalidFormat = errors.New("invalid storage time format")

// ToStorage encodes t as UTC using StorageLayout. Sub-second precision is dropped.
func ToStorage(t time.Time) string {
	return t.UTC().Format(StorageLayout)
}

// FromStorage decodes a StorageLayout string into a UTC instant.
func FromStorage(value string) (time.Time, error) {
	if len(value) != len(StorageLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
	}

	parsed, err := time.ParseInLocation(StorageLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidFormat, value, err)
	}

	// time.Parse tolerates some non-padded fields; require the canonical text.
	if ToStorage(parsed) != value {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, value)
	}

	return parsed, nil
}

// UserLocal renders the UTC instant shifted by offsetHours using pattern.
func UserLocal(t time.Time, offsetHours int, pattern Pattern) string {
	return t.UTC().Add(time.Duration(offsetHours) * time.Hour).Format(string(pattern))
}

// DayStartUTC returns the UTC instant of the user's local midnight for now.
func DayStartUTC(now time.Time, offsetHours int) time.Time {
	shift := time.Duration(offsetHours) * time.Hour
	local := now.UTC().Add(shift)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Add(-shift)
}

// UserDayStartUTC is DayStartUTC evaluated at the current instant.
func UserDayStartUTC(offsetHours int) time.Time {
	return DayStartUTC(time.Now(), offsetHours)
}

// Offset renders a timezone offset with an explicit sign; zero has none.
func Offset(offsetHours int) string {
	switch {
	case offsetHours > 0:
		return fmt.Sprintf("+%d", offsetHours)
	case offsetHours < 0:
		return fmt.Sprintf("%d", offsetHours)
	default:
		return "0"
	}
}
