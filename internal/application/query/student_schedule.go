package query

import (
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT SCHEDULE QUERIES
// Where a student is today, where they go next, and their whole year.
// ══════════════════════════════════════════════════════════════════════════════

// NoWeekRotation marks a week with no assignment in the full-year view.
const NoWeekRotation shared.RotationCode = "N/A"

// OtherPhase groups weeks whose rotation is not in the catalog.
const OtherPhase = "Other"

// Assignment is one schedule item resolved against the catalog.
type Assignment struct {
	StudentID    string              `json:"student_id"`
	Rotation     shared.RotationCode `json:"rotation"`
	RotationName string              `json:"rotation_name"`
	Phase        shared.PhaseCode    `json:"phase"`
	Start        time.Time           `json:"start_date"`
	End          time.Time           `json:"end_date"`
}

// IsNone reports whether this is the "None" sentinel.
func (a Assignment) IsNone() bool {
	return a.Rotation.IsNone()
}

// Range returns the assignment's days.
func (a Assignment) Range() timeutil.DateRange {
	return timeutil.DateRange{Start: a.Start, End: a.End}
}

func (e *Engine) assignment(it schedule.Item) Assignment {
	return Assignment{
		StudentID:    it.StudentID,
		Rotation:     it.Rotation,
		RotationName: e.RotationName(it.Rotation),
		Phase:        e.phaseOf(it.Rotation),
		Start:        it.Start,
		End:          it.End,
	}
}

// RotationForDate returns the student's item active on day.
func (e *Engine) RotationForDate(studentID string, day time.Time) (Assignment, bool) {
	it, ok := e.sched.At(studentID, day)
	if !ok {
		return Assignment{}, false
	}
	return e.assignment(it), true
}

// RotationForWeek returns the rotation held in the middle of the week
// starting at weekStart.
func (e *Engine) RotationForWeek(studentID string, weekStart time.Time) (Assignment, bool) {
	return e.RotationForDate(studentID, timeutil.AddDays(weekStart, 3))
}

// CurrentRotation returns today's assignment, or the "None" sentinel with
// zero dates when the student has none.
func (e *Engine) CurrentRotation(studentID string) Assignment {
	if a, ok := e.RotationForDate(studentID, e.Today()); ok {
		return a
	}
	return Assignment{StudentID: studentID, Rotation: shared.NoRotation, RotationName: string(shared.NoRotation)}
}

// NextRotation returns the earliest assignment starting after today.
func (e *Engine) NextRotation(studentID string) (Assignment, bool) {
	it, ok := e.sched.Next(studentID, e.Today())
	if !ok {
		return Assignment{}, false
	}
	return e.assignment(it), true
}

// CompletedRotations returns the codes of items that ended before today,
// in schedule order.
func (e *Engine) CompletedRotations(studentID string) []shared.RotationCode {
	today := e.Today()
	var out []shared.RotationCode
	for _, it := range e.sched.ForStudent(studentID) {
		if it.End.Before(today) {
			out = append(out, it.Rotation)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Full-year view
// ─────────────────────────────────────────────────────────────────────────────

// WeekInfo is one row of a student's full-year schedule.
type WeekInfo struct {
	WeekNumber    int                 `json:"week_number"`
	Range         timeutil.DateRange  `json:"-"`
	DateRange     string              `json:"date_range"`
	Rotation      shared.RotationCode `json:"rotation"`
	Phase         shared.PhaseCode    `json:"phase"`
	IsCurrentWeek bool                `json:"is_current_week"`
}

// PhaseWeeks groups the weeks of one phase.
type PhaseWeeks struct {
	Phase string     `json:"phase"`
	Weeks []WeekInfo `json:"weeks"`
}

// FullSchedule returns one row per display week of the year. A week takes
// the first item found on any of its seven days, so short items are never
// missed; weeks with none show "N/A" and an empty phase.
func (e *Engine) FullSchedule(studentID string) []WeekInfo {
	if studentID == "" {
		return nil
	}
	today := e.Today()
	origin := e.catalog.YearStart()
	items := e.sched.ForStudent(studentID)

	out := make([]WeekInfo, 0, e.catalog.DisplayWeeks())
	for w := 0; w < e.catalog.DisplayWeeks(); w++ {
		week := timeutil.WeekWindow(origin, w)
		info := WeekInfo{
			WeekNumber:    w + 1,
			Range:         week,
			DateRange:     timeutil.FormatRange(week.Start, week.End),
			Rotation:      NoWeekRotation,
			IsCurrentWeek: week.Contains(today),
		}
		if it, ok := firstInWeek(items, week); ok {
			info.Rotation = it.Rotation
			info.Phase = e.phaseOf(it.Rotation)
		}
		out = append(out, info)
	}
	return out
}

func firstInWeek(items []schedule.Item, week timeutil.DateRange) (schedule.Item, bool) {
	for d := 0; d < week.Days(); d++ {
		day := timeutil.AddDays(week.Start, d)
		for _, it := range items {
			if it.Contains(day) {
				return it, true
			}
		}
	}
	return schedule.Item{}, false
}

// FullScheduleByPhase groups the full-year view by phase, in order of first
// appearance. Weeks with an unknown rotation go under "Other"; empty weeks
// are left out.
func (e *Engine) FullScheduleByPhase(studentID string) []PhaseWeeks {
	var out []PhaseWeeks
	pos := map[string]int{}
	for _, w := range e.FullSchedule(studentID) {
		key := string(w.Phase)
		if key == "" {
			if w.Rotation == NoWeekRotation {
				continue
			}
			key = OtherPhase
		}
		i, ok := pos[key]
		if !ok {
			i = len(out)
			pos[key] = i
			out = append(out, PhaseWeeks{Phase: key})
		}
		out[i].Weeks = append(out[i].Weeks, w)
	}
	return out
}
