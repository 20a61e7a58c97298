package query

import (
	"strings"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FILTERS & SEARCH
// ══════════════════════════════════════════════════════════════════════════════

// All is the filter value meaning "no restriction". Empty works the same.
const All = "all"

// MaxSearchResults caps SearchStudents.
const MaxSearchResults = 10

// Filters narrows schedule views. Empty or "all" fields do not filter;
// the date window applies only when both ends are set.
type Filters struct {
	Batch     string
	Phase     string
	Rotation  string
	Student   string
	StartDate time.Time
	EndDate   time.Time
}

func isAll(v string) bool {
	return v == "" || strings.EqualFold(v, All)
}

// FilteredSchedule returns the items matching f, in generation order.
// Items of students outside the roster are dropped by a batch filter.
func (e *Engine) FilteredSchedule(f Filters) []schedule.Item {
	var window timeutil.DateRange
	useWindow := !f.StartDate.IsZero() && !f.EndDate.IsZero()
	if useWindow {
		window = timeutil.NewRange(f.StartDate, f.EndDate)
	}

	var out []schedule.Item
	for _, it := range e.sched.Items() {
		if !isAll(f.Batch) {
			s, ok := e.students[it.StudentID]
			if !ok || string(s.Batch) != f.Batch {
				continue
			}
		}
		if !isAll(f.Phase) && string(e.phaseOf(it.Rotation)) != f.Phase {
			continue
		}
		if !isAll(f.Rotation) && string(it.Rotation) != f.Rotation {
			continue
		}
		if !isAll(f.Student) && it.StudentID != f.Student {
			continue
		}
		if useWindow && !it.Range().Overlaps(window) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// FilteredStudents returns roster students matching the batch and student
// filters, further narrowed by search when it is not blank.
func (e *Engine) FilteredStudents(f Filters, search string) []student.Student {
	var out []student.Student
	for _, s := range e.roster {
		if !isAll(f.Batch) && string(s.Batch) != f.Batch {
			continue
		}
		if !isAll(f.Student) && s.ID != f.Student {
			continue
		}
		if strings.TrimSpace(search) != "" && !s.Matches(search) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// SearchStudents finds up to MaxSearchResults students whose name or
// registration number contains query. Queries shorter than two characters
// return nothing.
func (e *Engine) SearchStudents(query string) []student.Student {
	if len([]rune(strings.TrimSpace(query))) < 2 {
		return nil
	}
	var out []student.Student
	for _, s := range e.roster {
		if s.Matches(query) {
			out = append(out, s)
			if len(out) == MaxSearchResults {
				break
			}
		}
	}
	return out
}

// StudentOnDate pairs a student with the rotation they hold on a day.
type StudentOnDate struct {
	student.Student
	Rotation shared.RotationCode `json:"rotation"`
}

// unknownStudent stands in for an item whose student is not on the roster.
func unknownStudent(id string) student.Student {
	return student.Student{ID: id, RegdNo: "Unknown", Name: "Unknown", Batch: "Unknown"}
}

// StudentsForDate lists every filtered item active on day with its student.
func (e *Engine) StudentsForDate(day time.Time, f Filters) []StudentOnDate {
	var out []StudentOnDate
	for _, it := range e.FilteredSchedule(f) {
		if !it.Contains(day) {
			continue
		}
		s, ok := e.students[it.StudentID]
		if !ok {
			s = unknownStudent(it.StudentID)
		}
		out = append(out, StudentOnDate{Student: s, Rotation: it.Rotation})
	}
	return out
}
