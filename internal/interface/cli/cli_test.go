package cli

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/internal/application/query"
	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/clock"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

var yearStart = timeutil.Date(2025, 4, 1)

func testRoster() student.Roster {
	var r student.Roster
	for _, b := range shared.AllBatches {
		for i := 1; i <= 34; i++ {
			r = append(r, student.New(b, i, fmt.Sprintf("R%s%03d", b, i), fmt.Sprintf("Student %s%d", b, i)))
		}
	}
	return r
}

func engineAt(t *testing.T, day time.Time) *query.Engine {
	t.Helper()
	e, err := query.New(testRoster(), catalog.Default(), clock.NewFixed(day))
	require.NoError(t, err)
	return e
}

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return records
}

// ─────────────────────────────────────────────────────────────────────────────
// CSV
// ─────────────────────────────────────────────────────────────────────────────

func TestFileNames(t *testing.T) {
	assert.Equal(t, "medical_rotation_schedule_2025-04-01.csv", ScheduleFileName(yearStart))
	assert.Equal(t, "student_RA001_schedule.csv", StudentFileName("RA001", "A01"))
	assert.Equal(t, "student_A01_schedule.csv", StudentFileName("", "A01"))
	assert.Equal(t, "rotation_GM_students_2025-04-01.csv", RotationFileName("GM", yearStart))
}

func TestWriteScheduleCSV(t *testing.T) {
	e := engineAt(t, yearStart)
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, e.RotationExport("GM")))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 18)
	assert.Equal(t, scheduleHeader, records[0])
	assert.Equal(t, []string{
		"RA001", "Student A1", "A", "GM", "General Medicine", "MED", "Medicine",
		"2025-04-01", "2025-05-12", "42",
	}, records[1])
}

func TestWriteScheduleCSV_ZeroDatesAreNA(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, []query.ScheduleRow{{RegNo: "R1", RotationCode: "GM"}}))
	records := readCSV(t, buf.Bytes())
	assert.Equal(t, "N/A", records[1][7])
	assert.Equal(t, "N/A", records[1][8])
	assert.Equal(t, "0", records[1][9])
}

func TestWriteStudentCSV(t *testing.T) {
	e := engineAt(t, yearStart)
	var buf bytes.Buffer
	require.NoError(t, WriteStudentCSV(&buf, e.StudentExport("B02")))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 54)
	assert.Equal(t, studentHeader, records[0])
	assert.Equal(t, "RB002", records[1][0])
	assert.Equal(t, "1", records[1][3])
	assert.Equal(t, "SUR", records[1][7])
}

func TestWriteConflictsCSV(t *testing.T) {
	sched := schedule.New([]schedule.Item{
		{StudentID: "A01", Rotation: "GM", Start: yearStart, End: timeutil.AddDays(yearStart, 13)},
		{StudentID: "A01", Rotation: "PY", Start: timeutil.AddDays(yearStart, 10), End: timeutil.AddDays(yearStart, 20)},
	})
	e := query.NewWithSchedule(testRoster(), catalog.Default(), clock.NewFixed(yearStart), sched)

	var buf bytes.Buffer
	require.NoError(t, WriteConflictsCSV(&buf, e.Conflicts(query.ConflictFilter{})))
	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, []string{"A01", "RA001", "Student A1", "A", "GM", "PY", "2025-04-11", "2025-04-14", "4"}, records[1])

	buf.Reset()
	require.NoError(t, WriteConflictsCSV(&buf, nil))
	assert.Len(t, readCSV(t, buf.Bytes()), 1)
}

func TestWriteFullExport(t *testing.T) {
	e := engineAt(t, yearStart)
	var buf bytes.Buffer
	require.NoError(t, WriteFullExport(&buf, e))
	assert.Len(t, readCSV(t, buf.Bytes()), e.Schedule().Len()+1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Text reports
// ─────────────────────────────────────────────────────────────────────────────

func TestWriteReport(t *testing.T) {
	e := engineAt(t, yearStart)
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, e))

	out := buf.String()
	assert.Contains(t, out, "Apr 01, 2025")
	assert.Contains(t, out, "Week 0")
	assert.Contains(t, out, "136 enrolled")
	assert.Contains(t, out, "Medicine")
	assert.Contains(t, out, "General Medicine")
	assert.Contains(t, out, "No scheduling conflicts.")
}

func TestWriteStudentCard(t *testing.T) {
	e := engineAt(t, yearStart)
	var buf bytes.Buffer
	require.NoError(t, WriteStudentCard(&buf, e, "A01"))

	out := buf.String()
	assert.Contains(t, out, "RA001 - Student A1")
	assert.Contains(t, out, "Current: GM General Medicine")
	assert.Contains(t, out, "Next:    PY")
	assert.NotContains(t, out, "Completed:")
	assert.Equal(t, 53, strings.Count(out, "\n  "))

	err := WriteStudentCard(&buf, e, "Z99")
	assert.ErrorIs(t, err, shared.ErrStudentNotFound)
}

func TestWriteRotationRoll(t *testing.T) {
	e := engineAt(t, yearStart)
	var buf bytes.Buffer
	require.NoError(t, WriteRotationRoll(&buf, e, "GM", ""))
	assert.Contains(t, buf.String(), "GM General Medicine on Apr 01, 2025: 17 students")

	buf.Reset()
	require.NoError(t, WriteRotationRoll(&buf, e, "GM", "RA001"))
	assert.Contains(t, buf.String(), ": 1 students")

	assert.ErrorIs(t, WriteRotationRoll(&buf, e, "XX", ""), shared.ErrUnknownRotation)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat(".", 20)+"]", progressBar(0))
	assert.Equal(t, "["+strings.Repeat("#", 10)+strings.Repeat(".", 10)+"]", progressBar(50))
	assert.Equal(t, "["+strings.Repeat("#", 20)+"]", progressBar(150))
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{shared.ErrRosterEmpty, ExitInvalid},
		{shared.ErrInvalidBatch, ExitInvalid},
		{shared.ErrUnknownRotation, ExitNotFound},
		{shared.ErrSnapshotNotFound.Wrap(errors.New("no rows")), ExitNotFound},
		{shared.ErrRosterUnavailable.Wrap(errors.New("redis: connection refused")), ExitUnavailable},
		{errors.New("disk full"), ExitFailure},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExitCode(tc.err), "%v", tc.err)
	}
}
