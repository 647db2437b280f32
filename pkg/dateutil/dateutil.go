// Package dateutil provides calendar-date primitives for enrollment projection.
// All engine rules work on whole calendar dates (no time-of-day, no timezone),
// so dates are modeled as year/month/day triples rather than time.Time instants.
// No external dependencies - uses only standard library.
package dateutil

import (
	"errors"
	"fmt"
	"time"
)

// FormatDate is the wire format for dates (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// ErrInvalidDate is returned when a date string cannot be parsed.
var ErrInvalidDate = errors.New("dateutil: invalid date")

// Date is a calendar date without time or zone.
// The zero value means "not set" and marshals to an empty JSON string,
// matching the snapshot document format.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New creates a Date from year, month, day.
func New(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime truncates a time.Time to its calendar date.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	return FromTime(time.Now().UTC())
}

// Parse parses a YYYY-MM-DD string. The empty string parses to the zero Date.
func Parse(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(FormatDate, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return FromTime(t), nil
}

// MustParse parses a YYYY-MM-DD string and panics on failure.
// Intended for tests and static defaults.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String returns the YYYY-MM-DD representation, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(FormatDate)
}

// Compare returns -1, 0 or +1 ordering d against other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool { return d.Compare(other) == 0 }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// AddMonths returns the date n months later. Day-of-month overflow
// normalizes forward (Jan 31 + 1 month = Mar 3), matching time.AddDate.
func (d Date) AddMonths(n int) Date {
	return FromTime(d.Time().AddDate(0, n, 0))
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or "" for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes "YYYY-MM-DD", "" or null. Anything else is an error.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := Parse(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthsBetween returns the number of whole calendar months from d1 to d2,
// counting only year and month components (day-of-month is ignored).
// Negative results clamp to 0.
func MonthsBetween(d1, d2 Date) int {
	months := (d2.Year-d1.Year)*12 - int(d1.Month) + int(d2.Month)
	if months <= 0 {
		return 0
	}
	return months
}

// YearsBetween returns the number of whole elapsed years from d1 to d2,
// birthday-aware: one year is subtracted when d2's month/day falls before
// d1's. Returns 0 when d1 is after d2.
func YearsBetween(d1, d2 Date) int {
	if d1.After(d2) {
		return 0
	}
	age := d2.Year - d1.Year
	if d2.Month < d1.Month || (d2.Month == d1.Month && d2.Day < d1.Day) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// CutoffDate returns the academic cutoff date (cutoffMonth/cutoffDay) of
// the given year.
func CutoffDate(year int, cutoffMonth time.Month, cutoffDay int) Date {
	return New(year, cutoffMonth, cutoffDay)
}

// AgeAtCutoff returns the child's age in whole years at the academic
// cutoff governing the projection date. When the projection month
// precedes the cutoff month the governing cutoff is the previous year's.
func AgeAtCutoff(dob, projection Date, cutoffMonth time.Month, cutoffDay int) int {
	year := projection.Year
	if projection.Month < cutoffMonth {
		year--
	}
	return YearsBetween(dob, CutoffDate(year, cutoffMonth, cutoffDay))
}
