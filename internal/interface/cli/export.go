// Package cli renders schedule data for the command line: CSV exports in the
// column layout coordinators already use, and plain-text reports.
package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/application/query"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CSV EXPORTS
// ══════════════════════════════════════════════════════════════════════════════

var (
	scheduleHeader = []string{
		"Registration Number", "Student Name", "Batch",
		"Rotation Code", "Rotation Name", "Phase", "Phase Name",
		"Start Date", "End Date", "Duration (Days)",
	}

	studentHeader = []string{
		"RegdNo", "StudentName", "Batch", "Week", "DateRange",
		"Rotation", "RotationName", "Phase", "PhaseName",
	}

	conflictHeader = []string{
		"Student ID", "Registration Number", "Student Name", "Batch",
		"Rotation A", "Rotation B", "Start Date", "End Date", "Days Overlap",
	}
)

// ScheduleFileName is the name of a full schedule export taken on day.
func ScheduleFileName(day time.Time) string {
	return "medical_rotation_schedule_" + timeutil.FormatDateStr(day) + ".csv"
}

// StudentFileName is the name of a student's export. The registration number
// is preferred; the id is used when it is blank.
func StudentFileName(regdNo, studentID string) string {
	key := regdNo
	if key == "" {
		key = studentID
	}
	return "student_" + key + "_schedule.csv"
}

// RotationFileName is the name of a rotation's roll export taken on day.
func RotationFileName(code shared.RotationCode, day time.Time) string {
	return fmt.Sprintf("rotation_%s_students_%s.csv", code, timeutil.FormatDateStr(day))
}

// WriteScheduleCSV writes rows in the full schedule layout.
func WriteScheduleCSV(w io.Writer, rows []query.ScheduleRow) error {
	return writeCSV(w, scheduleHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.RegNo,
			r.Name,
			r.Batch,
			string(r.RotationCode),
			r.RotationName,
			string(r.PhaseCode),
			r.PhaseName,
			dateOrNA(r.StartDate),
			dateOrNA(r.EndDate),
			strconv.Itoa(r.DurationDays),
		}
	})
}

// WriteStudentCSV writes a student's week-by-week export.
func WriteStudentCSV(w io.Writer, rows []query.StudentWeekRow) error {
	return writeCSV(w, studentHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.RegNo,
			r.Name,
			r.Batch,
			strconv.Itoa(r.WeekNumber),
			r.DateRange,
			string(r.RotationCode),
			r.RotationName,
			string(r.PhaseCode),
			r.PhaseName,
		}
	})
}

// WriteConflictsCSV writes the conflict report. An empty report still gets
// its header row.
func WriteConflictsCSV(w io.Writer, conflicts []query.ConflictDTO) error {
	return writeCSV(w, conflictHeader, len(conflicts), func(i int) []string {
		c := conflicts[i]
		return []string{
			c.StudentID,
			c.RegdNo,
			c.StudentName,
			string(c.Batch),
			string(c.RotationA),
			string(c.RotationB),
			c.StartDate,
			c.EndDate,
			strconv.Itoa(c.DaysOverlap),
		}
	})
}

func writeCSV(w io.Writer, header []string, n int, record func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(record(i)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func dateOrNA(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return timeutil.FormatDateStr(t)
}
