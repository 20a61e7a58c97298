// Package query contains the read side of the scheduler: the Engine built
// from a roster and a catalog, and every derived view over its schedule.
package query

import (
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/clock"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// Generated once from (roster, catalog); every method is a pure read over the
// resulting schedule and the clock's notion of today.
// ══════════════════════════════════════════════════════════════════════════════

// Engine answers schedule queries.
type Engine struct {
	roster   student.Roster
	students map[string]student.Student
	catalog  *catalog.Catalog
	sched    *schedule.Schedule
	clock    clock.Clock
}

// New generates the schedule for roster and returns an Engine over it.
// A nil clock means the wall clock.
func New(roster student.Roster, cat *catalog.Catalog, clk clock.Clock) (*Engine, error) {
	sched, err := schedule.Generate(roster, cat)
	if err != nil {
		return nil, err
	}
	return NewWithSchedule(roster, cat, clk, sched), nil
}

// NewWithSchedule wraps an already generated schedule, e.g. one restored
// from a cache or a stored snapshot.
func NewWithSchedule(roster student.Roster, cat *catalog.Catalog, clk clock.Clock, sched *schedule.Schedule) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{
		roster:   append(student.Roster(nil), roster...),
		students: roster.Index(),
		catalog:  cat,
		sched:    sched,
		clock:    clk,
	}
}

// Today returns the day queries are evaluated against.
func (e *Engine) Today() time.Time {
	return e.clock.Today()
}

// Schedule returns the generated schedule.
func (e *Engine) Schedule() *schedule.Schedule { return e.sched }

// Catalog returns the catalog the schedule was built from.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Roster returns a copy of the roster.
func (e *Engine) Roster() student.Roster {
	return append(student.Roster(nil), e.roster...)
}

// Student looks up a roster student by ID.
func (e *Engine) Student(id string) (student.Student, bool) {
	s, ok := e.students[id]
	return s, ok
}

// StudentName renders "regdNo - name", or the raw ID for unknown students.
func (e *Engine) StudentName(id string) string {
	if s, ok := e.students[id]; ok {
		return s.DisplayName()
	}
	return id
}

// RotationName returns the rotation's display name or the code itself.
func (e *Engine) RotationName(code shared.RotationCode) string {
	return e.catalog.RotationName(code)
}

// PhaseName returns the phase's display name or the code itself.
func (e *Engine) PhaseName(code shared.PhaseCode) string {
	return e.catalog.PhaseName(code)
}

// phaseOf returns the phase of a rotation, or "" when unknown.
func (e *Engine) phaseOf(code shared.RotationCode) shared.PhaseCode {
	p, _ := e.catalog.PhaseOf(code)
	return p
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// CurrentWeek returns the number of weeks since the start of the year,
// rounded up. It is 0 on the first day.
func (e *Engine) CurrentWeek() int {
	days := timeutil.DaysBetween(e.catalog.YearStart(), e.Today())
	if days <= 0 {
		return 0
	}
	return (days + timeutil.DaysPerWeek - 1) / timeutil.DaysPerWeek
}

// CompletionPercentage returns how far through the year today is, rounded
// and clamped to 0..100.
func (e *Engine) CompletionPercentage() int {
	start := e.catalog.YearStart()
	total := timeutil.DaysBetween(start, timeutil.AddWeeks(start, e.catalog.YearWeeks()))
	passed := timeutil.DaysBetween(start, e.Today())
	if total <= 0 || passed <= 0 {
		return 0
	}
	pct := (passed*100 + total/2) / total
	return min(pct, 100)
}

// WeekDates returns the seven days starting at weekStart.
func (e *Engine) WeekDates(weekStart time.Time) []time.Time {
	out := make([]time.Time, timeutil.DaysPerWeek)
	for i := range out {
		out[i] = timeutil.AddDays(weekStart, i)
	}
	return out
}
