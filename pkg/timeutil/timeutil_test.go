package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeksFrom(t *testing.T) {
	start := Date(2025, time.April, 1)
	r := WeeksFrom(start, 12)

	assert.Equal(t, "2025-04-01", FormatDateStr(r.Start))
	assert.Equal(t, "2025-06-23", FormatDateStr(r.End))
	assert.Equal(t, 84, r.Days())
}

func TestDateRange_OverlapsIsInclusive(t *testing.T) {
	a := NewRange(Date(2025, 4, 1), Date(2025, 4, 14))
	b := NewRange(Date(2025, 4, 14), Date(2025, 4, 20))
	c := NewRange(Date(2025, 4, 15), Date(2025, 4, 20))

	assert.True(t, a.Overlaps(b), "shared last day is an overlap")
	assert.False(t, a.Overlaps(c), "adjacent ranges do not overlap")

	inter, ok := a.Intersect(b)
	require.True(t, ok)
	assert.Equal(t, 1, inter.Days())
}

func TestDateRange_Contains(t *testing.T) {
	r := NewRange(Date(2025, 4, 1), Date(2025, 4, 7))

	assert.True(t, r.Contains(Date(2025, 4, 1)))
	assert.True(t, r.Contains(time.Date(2025, 4, 7, 23, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(Date(2025, 4, 8)))
	assert.False(t, r.Contains(Date(2025, 3, 31)))
}

func TestDateRange_SplitWeeksTiles(t *testing.T) {
	r := WeeksFrom(Date(2025, 4, 1), 12)
	parts := r.SplitWeeks(3, 3, 3, 3)

	require.Len(t, parts, 4)
	assert.Equal(t, r.Start, parts[0].Start)
	assert.Equal(t, r.End, parts[3].End)
	for i := 1; i < len(parts); i++ {
		assert.Equal(t, AddDays(parts[i-1].End, 1), parts[i].Start)
		assert.Equal(t, 21, parts[i].Days())
	}
}

func TestDateRange_SplitClipsLastPiece(t *testing.T) {
	r := NewRange(Date(2025, 4, 1), Date(2025, 4, 10))
	parts := r.Split(7, 7)

	require.Len(t, parts, 2)
	assert.Equal(t, 7, parts[0].Days())
	assert.Equal(t, 3, parts[1].Days())
}

func TestFormatRange(t *testing.T) {
	w := WeekWindow(Date(2025, 4, 1), 1)
	assert.Equal(t, "Apr 08, 2025 - Apr 14, 2025", FormatRange(w.Start, w.End))
	assert.Equal(t, "N/A", FormatDisplay(time.Time{}))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-04-01")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 4, 1), d)

	_, err = ParseDate("04/01/2025")
	assert.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 364, DaysBetween(Date(2025, 4, 1), Date(2026, 3, 31)))
	assert.Equal(t, -1, DaysBetween(Date(2025, 4, 2), Date(2025, 4, 1)))
}

func TestDateRange_ZeroIsInvalid(t *testing.T) {
	assert.False(t, DateRange{}.IsValid())
	assert.Zero(t, DateRange{}.Days())
	assert.False(t, NewRange(Date(2025, 4, 2), Date(2025, 4, 1)).IsValid())
}
