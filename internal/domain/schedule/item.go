// Package schedule builds and holds the rotation schedule: the phase
// schedulers that fill a batch's phase window, the assembler that walks
// every batch through its phase sequence, and the conflict detector that
// checks the result.
package schedule

import (
	"sort"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ITEM
// ══════════════════════════════════════════════════════════════════════════════

// Item assigns one student to one rotation for an inclusive run of days.
type Item struct {
	StudentID string              `json:"student_id"`
	Rotation  shared.RotationCode `json:"rotation"`
	Start     time.Time           `json:"start"`
	End       time.Time           `json:"end"`
}

// Range returns the item's days as a DateRange.
func (i Item) Range() timeutil.DateRange {
	return timeutil.DateRange{Start: i.Start, End: i.End}
}

// Contains reports whether the item is active on the given day.
func (i Item) Contains(day time.Time) bool {
	return i.Range().Contains(day)
}

// Days returns the length of the item in days, both ends included.
func (i Item) Days() int {
	return i.Range().Days()
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// Schedule is the immutable result of generation, indexed by student.
type Schedule struct {
	items     []Item
	byStudent map[string][]Item
	ids       []string
}

// New builds a Schedule from items. The slice is copied.
func New(items []Item) *Schedule {
	s := &Schedule{
		items:     append([]Item(nil), items...),
		byStudent: make(map[string][]Item),
	}
	for _, it := range s.items {
		s.byStudent[it.StudentID] = append(s.byStudent[it.StudentID], it)
	}
	for id, list := range s.byStudent {
		sort.SliceStable(list, func(a, b int) bool { return list[a].Start.Before(list[b].Start) })
		s.ids = append(s.ids, id)
	}
	sort.Strings(s.ids)
	return s
}

// Len returns the number of items.
func (s *Schedule) Len() int {
	return len(s.items)
}

// Items returns a copy of all items in generation order.
func (s *Schedule) Items() []Item {
	return append([]Item(nil), s.items...)
}

// ForStudent returns the student's items ordered by start date.
func (s *Schedule) ForStudent(id string) []Item {
	return append([]Item(nil), s.byStudent[id]...)
}

// StudentIDs returns every student with at least one item, sorted.
func (s *Schedule) StudentIDs() []string {
	return append([]string(nil), s.ids...)
}

// At returns the item a student is on for the given day.
func (s *Schedule) At(id string, day time.Time) (Item, bool) {
	for _, it := range s.byStudent[id] {
		if it.Contains(day) {
			return it, true
		}
	}
	return Item{}, false
}

// Next returns the student's earliest item that starts after day.
func (s *Schedule) Next(id string, day time.Time) (Item, bool) {
	d := timeutil.StartOfDay(day)
	for _, it := range s.byStudent[id] {
		if it.Start.After(d) {
			return it, true
		}
	}
	return Item{}, false
}
