package schedule

import (
	"fmt"

	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCUMULATOR
// ══════════════════════════════════════════════════════════════════════════════

// Accumulator collects items while phases are being scheduled.
type Accumulator struct {
	items []Item
}

// Assign puts every student of group on code for the whole of r.
// Empty groups and empty ranges add nothing.
func (a *Accumulator) Assign(group []student.Student, code shared.RotationCode, r timeutil.DateRange) {
	if !r.IsValid() {
		return
	}
	for _, s := range group {
		a.items = append(a.items, Item{
			StudentID: s.ID,
			Rotation:  code,
			Start:     r.Start,
			End:       r.End,
		})
	}
}

// Items returns what has been assigned so far.
func (a *Accumulator) Items() []Item {
	return append([]Item(nil), a.items...)
}

// Len returns the number of assigned items.
func (a *Accumulator) Len() int {
	return len(a.items)
}

// cycle gives groups[g] the code codes[(g + step*b) mod n] during blocks[b].
// With as many groups as codes, no two groups share a code in a block and
// every group meets every code once over n blocks.
func (a *Accumulator) cycle(groups [][]student.Student, codes []shared.RotationCode, blocks []timeutil.DateRange, step int) {
	n := len(codes)
	if n == 0 {
		return
	}
	for b, block := range blocks {
		for g, group := range groups {
			idx := ((g+step*b)%n + n) % n
			a.Assign(group, codes[idx], block)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PHASE SCHEDULERS
// ══════════════════════════════════════════════════════════════════════════════

// PhaseScheduler fills window with items for one batch's students.
type PhaseScheduler func(acc *Accumulator, phase catalog.Phase, students []student.Student, window timeutil.DateRange)

var schedulers = map[catalog.Layout]PhaseScheduler{
	catalog.LayoutMainCycle:   MainCycle,
	catalog.LayoutNestedCycle: NestedCycle,
	catalog.LayoutWeeklyCycle: WeeklyCycle,
	catalog.LayoutPeriodCycle: PeriodCycle,
}

// SchedulePhase dispatches to the scheduler registered for the phase layout.
func SchedulePhase(acc *Accumulator, phase catalog.Phase, students []student.Student, window timeutil.DateRange) error {
	if !window.IsValid() {
		return shared.ErrInvalidWindow.Wrap(fmt.Errorf("phase %s: %s", phase.Code, window))
	}
	fn, ok := schedulers[phase.Layout]
	if !ok {
		return shared.ErrUnknownPhase.Wrap(fmt.Errorf("phase %s has layout %q", phase.Code, phase.Layout))
	}
	fn(acc, phase, students, window)
	return nil
}

// MainCycle schedules Medicine and Surgery.
//
// The batch is halved. In the first half of the phase the first group holds
// the main rotation while the second group splits in three and cycles the
// minor rotations in equal blocks (two weeks each for a 12-week phase). At
// mid-phase the groups swap roles.
func MainCycle(acc *Accumulator, phase catalog.Phase, students []student.Student, window timeutil.DateRange) {
	codes := phase.Codes()
	main, minors := codes[0], codes[1:]
	groups := SplitEven(students, 2)

	for h, half := range halves(window) {
		acc.Assign(groups[h], main, half)
		acc.cycle(SplitEven(groups[1-h], len(minors)), minors, blocks(half, len(minors)), 1)
	}
}

// NestedCycle schedules OBGY.
//
// The batch is halved and the halves swap the main rotation at mid-phase.
// Within each half, the group off the main rotation splits into a paired
// group (the smaller half) and a cycling group. For the first three weeks
// the paired group holds the paired rotation while the cycling group splits
// in three and rotates the minor rotations weekly. For the next three weeks
// the two swap: the cycling group holds the paired rotation and the paired
// group splits in three and rotates the minors.
func NestedCycle(acc *Accumulator, phase catalog.Phase, students []student.Student, window timeutil.DateRange) {
	codes := phase.Codes()
	main, paired, minors := codes[0], codes[1], codes[2:]
	groups := SplitEven(students, 2)

	for h, half := range halves(window) {
		acc.Assign(groups[h], main, half)

		other := groups[1-h]
		parts := SplitSizes(other, len(other)/2)
		pairedGroup, cycling := parts[0], parts[1]

		for q, quarter := range halves(half) {
			holder, rotating := pairedGroup, cycling
			if q == 1 {
				holder, rotating = cycling, pairedGroup
			}
			acc.Assign(holder, paired, quarter)
			acc.cycle(SplitEven(rotating, len(minors)), minors, blocks(quarter, len(minors)), 1)
		}
	}
}

// WeeklyCycle schedules the Others phase: four groups, one rotation a week,
// each group stepping to the next code every week.
func WeeklyCycle(acc *Accumulator, phase catalog.Phase, students []student.Student, window timeutil.DateRange) {
	weeks := max(window.Days()/timeutil.DaysPerWeek, 1)
	sizes := make([]int, weeks)
	for i := range sizes {
		sizes[i] = 1
	}
	acc.cycle(quarters(students), phase.Codes(), window.SplitWeeks(sizes...), -1)
}

// PeriodCycle schedules Community Medicine: four groups, the phase cut into
// one period per rotation (three weeks each for a 12-week phase), each group
// stepping to the next code every period.
func PeriodCycle(acc *Accumulator, phase catalog.Phase, students []student.Student, window timeutil.DateRange) {
	codes := phase.Codes()
	acc.cycle(quarters(students), codes, blocks(window, len(codes)), -1)
}

// halves cuts r at the whole week nearest its middle.
func halves(r timeutil.DateRange) []timeutil.DateRange {
	weeks := r.Days() / timeutil.DaysPerWeek
	first := weeks / 2
	if first == 0 {
		return []timeutil.DateRange{r, {}}
	}
	return padTo(r.SplitWeeks(first, weeks-first), 2)
}

// blocks cuts r into n runs of whole weeks; the last run takes any remainder.
func blocks(r timeutil.DateRange, n int) []timeutil.DateRange {
	size := max(r.Days()/timeutil.DaysPerWeek/n, 1)
	weeks := make([]int, n)
	for i := range weeks {
		weeks[i] = size
	}
	return r.SplitWeeks(weeks...)
}

// quarters splits students into halves and each half into two, so batch
// sizes like 34 give 9, 8, 9, 8.
func quarters(students []student.Student) [][]student.Student {
	h := SplitEven(students, 2)
	return append(SplitEven(h[0], 2), SplitEven(h[1], 2)...)
}

func padTo(rs []timeutil.DateRange, n int) []timeutil.DateRange {
	for len(rs) < n {
		rs = append(rs, timeutil.DateRange{})
	}
	return rs
}
