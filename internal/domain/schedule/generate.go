package schedule

import (
	"fmt"

	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// PhaseWindow is the span a batch spends in one phase.
type PhaseWindow struct {
	Batch shared.Batch
	Phase shared.PhaseCode
	Range timeutil.DateRange
}

// Plan lays out a batch's phases back to back from the start of the year.
// Each phase ends weeks*7-1 days after it starts and the next one begins
// the following day.
func Plan(cat *catalog.Catalog, b shared.Batch) ([]PhaseWindow, error) {
	seq := cat.Sequence(b)
	out := make([]PhaseWindow, 0, len(seq))
	cursor := cat.YearStart()
	for _, code := range seq {
		phase, ok := cat.Phase(code)
		if !ok {
			return nil, shared.ErrUnknownPhase.Wrap(fmt.Errorf("batch %s: %s", b, code))
		}
		window := timeutil.WeeksFrom(cursor, phase.Weeks)
		out = append(out, PhaseWindow{Batch: b, Phase: code, Range: window})
		cursor = timeutil.AddDays(window.End, 1)
	}
	return out, nil
}

// Generate assembles the full schedule: every batch is walked through its
// phase sequence and each phase window is filled by its scheduler.
func Generate(roster student.Roster, cat *catalog.Catalog) (*Schedule, error) {
	acc := &Accumulator{}
	for _, b := range shared.AllBatches {
		students := roster.ByBatch(b)
		windows, err := Plan(cat, b)
		if err != nil {
			return nil, err
		}
		for _, w := range windows {
			phase, _ := cat.Phase(w.Phase)
			if err := SchedulePhase(acc, phase, students, w.Range); err != nil {
				return nil, err
			}
		}
	}
	return New(acc.Items()), nil
}
