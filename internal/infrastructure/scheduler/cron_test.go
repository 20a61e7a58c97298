package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCronNext(t *testing.T) {
	cases := []struct {
		expr  string
		after string
		want  string
	}{
		{"*/15 * * * *", "2025-04-01 10:07", "2025-04-01 10:15"},
		{"*/15 * * * *", "2025-04-01 10:15", "2025-04-01 10:30"},
		{"30 6 * * *", "2025-04-01 06:30", "2025-04-02 06:30"},
		{"30 6 * * *", "2025-04-01 05:00", "2025-04-01 06:30"},
		{"0 7 * * 1", "2025-04-01 00:00", "2025-04-07 07:00"},
		{"0 0 1 * *", "2025-04-15 12:00", "2025-05-01 00:00"},
		{"0 9 1-5 * *", "2025-04-05 10:00", "2025-05-01 09:00"},
		{"0 8,20 * * *", "2025-04-01 09:00", "2025-04-01 20:00"},
		{"0 0 29 2 *", "2025-03-01 00:00", "2028-02-29 00:00"},
		// Either day field matches when both are restricted.
		{"0 0 15 * 1", "2025-04-08 00:00", "2025-04-14 00:00"},
	}
	for _, tc := range cases {
		t.Run(tc.expr+" after "+tc.after, func(t *testing.T) {
			ce, err := ParseCronExpression(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, at(tc.want), ce.Next(at(tc.after)))
		})
	}
}

func TestParseCronExpression_Errors(t *testing.T) {
	for _, expr := range []string{
		"* * * *",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"*/0 * * * *",
		"5-1 * * * *",
		"a * * * *",
		"* * * * 7",
	} {
		_, err := ParseCronExpression(expr)
		assert.ErrorIs(t, err, ErrInvalidCron, expr)
		assert.ErrorIs(t, err, ErrInvalidSchedule, expr)
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("@every 30m")
	require.NoError(t, err)
	assert.Equal(t, "@every 30m0s", s.String())
	assert.Equal(t, at("2025-04-01 10:30"), s.Next(at("2025-04-01 10:00")))

	s, err = ParseSchedule("@daily")
	require.NoError(t, err)
	assert.Equal(t, at("2025-04-02 00:00"), s.Next(at("2025-04-01 10:00")))

	s, err = ParseSchedule(EveryDay6AM)
	require.NoError(t, err)
	assert.Equal(t, EveryDay6AM, s.String())

	_, err = ParseSchedule("@every 10ms")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
	_, err = ParseSchedule("@every soon")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestMustParseCronExpression_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseCronExpression("nope") })
}
