package query

import (
	"sort"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPORT SHAPES
// Flat rows for CSV and print renderers.
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleRow is one schedule item joined with its student and catalog names.
type ScheduleRow struct {
	RegNo        string              `json:"reg_no"`
	Name         string              `json:"name"`
	Batch        string              `json:"batch"`
	RotationCode shared.RotationCode `json:"rotation_code"`
	RotationName string              `json:"rotation_name"`
	PhaseCode    shared.PhaseCode    `json:"phase_code"`
	PhaseName    string              `json:"phase_name"`
	StartDate    time.Time           `json:"start_date"`
	EndDate      time.Time           `json:"end_date"`
	DurationDays int                 `json:"duration_days"`
}

// StudentWeekRow is one week of a student's full-year export.
type StudentWeekRow struct {
	RegNo        string              `json:"reg_no"`
	Name         string              `json:"name"`
	Batch        string              `json:"batch"`
	WeekNumber   int                 `json:"week_number"`
	DateRange    string              `json:"date_range"`
	RotationCode shared.RotationCode `json:"rotation_code"`
	RotationName string              `json:"rotation_name"`
	PhaseCode    shared.PhaseCode    `json:"phase_code"`
	PhaseName    string              `json:"phase_name"`
}

func (e *Engine) row(s student.Student, known bool, it schedule.Item) ScheduleRow {
	phase := e.phaseOf(it.Rotation)
	r := ScheduleRow{
		RotationCode: it.Rotation,
		RotationName: e.RotationName(it.Rotation),
		PhaseCode:    phase,
		PhaseName:    e.PhaseName(phase),
		StartDate:    it.Start,
		EndDate:      it.End,
		DurationDays: it.Days(),
	}
	if known {
		r.RegNo, r.Name, r.Batch = s.RegdNo, s.Name, string(s.Batch)
	}
	return r
}

func sortRows(rows []ScheduleRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Batch != rows[j].Batch {
			return rows[i].Batch < rows[j].Batch
		}
		return rows[i].Name < rows[j].Name
	})
}

// ExportRows returns every filtered item as a row, sorted by batch then name.
// Items whose student is unknown keep blank student columns.
func (e *Engine) ExportRows(f Filters) []ScheduleRow {
	items := e.FilteredSchedule(f)
	rows := make([]ScheduleRow, 0, len(items))
	for _, it := range items {
		s, ok := e.students[it.StudentID]
		rows = append(rows, e.row(s, ok, it))
	}
	sortRows(rows)
	return rows
}

// RotationExport returns a row per student holding code today, sorted by
// batch then name.
func (e *Engine) RotationExport(code shared.RotationCode) []ScheduleRow {
	var rows []ScheduleRow
	for _, it := range e.activeToday(code, Filters{}) {
		s, ok := e.students[it.StudentID]
		if !ok {
			continue
		}
		rows = append(rows, e.row(s, true, it))
	}
	sortRows(rows)
	return rows
}

// StudentExport returns the student's full-year view as export rows, one per
// display week. Unknown students get blank student columns.
func (e *Engine) StudentExport(studentID string) []StudentWeekRow {
	s, known := e.students[studentID]
	weeks := e.FullSchedule(studentID)
	rows := make([]StudentWeekRow, 0, len(weeks))
	for _, w := range weeks {
		r := StudentWeekRow{
			WeekNumber:   w.WeekNumber,
			DateRange:    w.DateRange,
			RotationCode: w.Rotation,
			RotationName: e.RotationName(w.Rotation),
			PhaseCode:    w.Phase,
			PhaseName:    e.PhaseName(w.Phase),
		}
		if known {
			r.RegNo, r.Name, r.Batch = s.RegdNo, s.Name, string(s.Batch)
		}
		rows = append(rows, r)
	}
	return rows
}
