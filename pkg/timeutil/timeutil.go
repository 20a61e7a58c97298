// Package timeutil provides civil-date utilities for the rotation calendar.
// All schedule dates are whole days in a single fixed academic zone, and
// every range in the system is inclusive on both ends.
package timeutil

import (
	"fmt"
	"time"
)

// AcademicTZ is the zone every schedule date is normalised into.
// Dates are civil days, so a fixed zone keeps day arithmetic free of DST.
var AcademicTZ = time.UTC

// Common date formats.
const (
	// FormatDate is the canonical date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDisplayDate is the human-readable format used in exports (Jan 02, 2006).
	FormatDisplayDate = "Jan 02, 2006"
)

// DaysPerWeek is the number of days in a schedule week.
const DaysPerWeek = 7

// Date creates a civil date in the academic zone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, AcademicTZ)
}

// StartOfDay truncates t to midnight of its calendar day in the academic zone.
// The calendar day is read from t's own location so a caller's local date is kept.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, AcademicTZ)
}

// AddDays returns the civil date n days after t.
func AddDays(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, n)
}

// AddWeeks returns the civil date n weeks after t.
func AddWeeks(t time.Time, n int) time.Time {
	return AddDays(t, n*DaysPerWeek)
}

// DaysBetween returns the signed number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	d := StartOfDay(b).Sub(StartOfDay(a))
	return int(d.Hours() / 24)
}

// IsSameDay reports whether a and b fall on the same calendar day.
func IsSameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// ParseDate parses a YYYY-MM-DD string into a civil date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(FormatDate, value, AcademicTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse date %q: %w", value, err)
	}
	return t, nil
}

// MustParseDate is ParseDate for compile-time constants. It panics on error.
func MustParseDate(value string) time.Time {
	t, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatDateStr formats t as YYYY-MM-DD.
func FormatDateStr(t time.Time) string {
	return StartOfDay(t).Format(FormatDate)
}

// FormatDisplay formats t as "Jan 02, 2006". The zero time renders as "N/A".
func FormatDisplay(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return StartOfDay(t).Format(FormatDisplayDate)
}

// FormatRange renders an inclusive range as "Jan 02, 2006 - Jan 08, 2006".
func FormatRange(start, end time.Time) string {
	return FormatDisplay(start) + " - " + FormatDisplay(end)
}

// ══════════════════════════════════════════════════════════════════════════════
// DATE RANGES
// ══════════════════════════════════════════════════════════════════════════════

// DateRange is an inclusive span of civil days [Start, End].
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewRange builds a normalised inclusive range.
func NewRange(start, end time.Time) DateRange {
	return DateRange{Start: StartOfDay(start), End: StartOfDay(end)}
}

// WeeksFrom returns the range covering n whole weeks starting at start,
// i.e. [start, start + n weeks - 1 day].
func WeeksFrom(start time.Time, n int) DateRange {
	return NewRange(start, AddDays(AddWeeks(start, n), -1))
}

// WeekWindow returns the i-th (0-based) seven-day window counted from origin.
func WeekWindow(origin time.Time, i int) DateRange {
	return WeeksFrom(AddWeeks(origin, i), 1)
}

// IsValid reports whether the range is set and non-empty (Start <= End).
func (r DateRange) IsValid() bool {
	return !r.Start.IsZero() && !r.End.Before(r.Start)
}

// Days returns the number of days in the range, counting both ends.
func (r DateRange) Days() int {
	if !r.IsValid() {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

// Contains reports whether the day of t lies inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := StartOfDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.End) && !r.End.Before(o.Start)
}

// Intersect returns the shared days of both ranges and whether any exist.
func (r DateRange) Intersect(o DateRange) (DateRange, bool) {
	if !r.Overlaps(o) {
		return DateRange{}, false
	}
	out := DateRange{Start: r.Start, End: r.End}
	if o.Start.After(out.Start) {
		out.Start = o.Start
	}
	if o.End.Before(out.End) {
		out.End = o.End
	}
	return out, true
}

// Next returns the range of the same length starting the day after r ends.
func (r DateRange) Next() DateRange {
	start := AddDays(r.End, 1)
	return NewRange(start, AddDays(start, r.Days()-1))
}

// Split cuts the range into consecutive sub-ranges of the given lengths in days.
// The last sub-range is stretched or clipped so the pieces exactly tile r.
func (r DateRange) Split(days ...int) []DateRange {
	out := make([]DateRange, 0, len(days))
	cursor := r.Start
	for i, n := range days {
		end := AddDays(cursor, n-1)
		if i == len(days)-1 || end.After(r.End) {
			end = r.End
		}
		out = append(out, NewRange(cursor, end))
		cursor = AddDays(end, 1)
		if cursor.After(r.End) {
			break
		}
	}
	return out
}

// SplitWeeks cuts the range into consecutive blocks of the given week counts.
func (r DateRange) SplitWeeks(weeks ...int) []DateRange {
	days := make([]int, len(weeks))
	for i, w := range weeks {
		days[i] = w * DaysPerWeek
	}
	return r.Split(days...)
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) String() string {
	return FormatDateStr(r.Start) + ".." + FormatDateStr(r.End)
}
