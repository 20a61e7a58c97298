package query

import (
	"sort"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROTATION QUERIES
// Who is on which rotation today.
// ══════════════════════════════════════════════════════════════════════════════

// RotationSummary is the dashboard line for one rotation.
type RotationSummary struct {
	Code         shared.RotationCode `json:"code"`
	Name         string              `json:"name"`
	Phase        shared.PhaseCode    `json:"phase"`
	StudentCount int                 `json:"student_count"`
	Start        time.Time           `json:"start_date"`
	End          time.Time           `json:"end_date"`
}

// activeToday returns the filtered items of code that contain today.
func (e *Engine) activeToday(code shared.RotationCode, f Filters) []schedule.Item {
	today := e.Today()
	var out []schedule.Item
	for _, it := range e.FilteredSchedule(f) {
		if it.Rotation == code && it.Contains(today) {
			out = append(out, it)
		}
	}
	return out
}

// StudentsInRotation returns the roster students holding code today.
// Items of students missing from the roster are skipped.
func (e *Engine) StudentsInRotation(code shared.RotationCode, f Filters) []student.Student {
	var out []student.Student
	for _, it := range e.activeToday(code, f) {
		if s, ok := e.students[it.StudentID]; ok {
			out = append(out, s)
		}
	}
	return out
}

// StudentInRotation is a student with the window of their current item.
type StudentInRotation struct {
	student.Student
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// StudentsInRotationDetailed is StudentsInRotation with each student's item
// window, narrowed to students matching search when it is not blank.
func (e *Engine) StudentsInRotationDetailed(code shared.RotationCode, search string) []StudentInRotation {
	var out []StudentInRotation
	for _, it := range e.activeToday(code, Filters{}) {
		s, ok := e.students[it.StudentID]
		if !ok {
			continue
		}
		if search != "" && !s.Matches(search) {
			continue
		}
		out = append(out, StudentInRotation{Student: s, Start: it.Start, End: it.End})
	}
	return out
}

// AllRotations summarises every catalog rotation for today, sorted by phase
// then code. Rotations nobody holds get a zero count and the window from
// today to a week later.
func (e *Engine) AllRotations(f Filters) []RotationSummary {
	today := e.Today()
	out := make([]RotationSummary, 0, len(e.catalog.Rotations()))
	for _, r := range e.catalog.Rotations() {
		sum := RotationSummary{Code: r.Code, Name: r.Name, Phase: r.Phase}
		if items := e.activeToday(r.Code, f); len(items) > 0 {
			sum.StudentCount = len(items)
			sum.Start, sum.End = items[0].Start, items[0].End
		} else {
			sum.Start, sum.End = today, timeutil.AddWeeks(today, 1)
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Phase != out[j].Phase {
			return out[i].Phase < out[j].Phase
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// ActiveRotations is AllRotations without the rotations nobody holds.
func (e *Engine) ActiveRotations(f Filters) []RotationSummary {
	var out []RotationSummary
	for _, r := range e.AllRotations(f) {
		if r.StudentCount > 0 {
			out = append(out, r)
		}
	}
	return out
}

// ActiveRotationsCount returns len(ActiveRotations(f)).
func (e *Engine) ActiveRotationsCount(f Filters) int {
	return len(e.ActiveRotations(f))
}
