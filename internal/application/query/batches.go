package query

import (
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BATCH QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// NoPhase is the sentinel phase of a batch with nothing scheduled today.
const NoPhase shared.PhaseCode = "None"

// BatchPhaseStatus describes the phase a batch is in today.
type BatchPhaseStatus struct {
	Batch     shared.Batch     `json:"batch"`
	Phase     shared.PhaseCode `json:"phase"`
	PhaseName string           `json:"phase_name"`
	// Start and End span the batch's items in this phase; zero for NoPhase.
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// CurrentPhaseForBatch resolves the phases of every item the batch holds
// today and reports the first one found, with the window from the earliest
// start to the latest end of the batch's items in that phase.
func (e *Engine) CurrentPhaseForBatch(b shared.Batch) BatchPhaseStatus {
	status := BatchPhaseStatus{Batch: b, Phase: NoPhase, PhaseName: string(NoPhase)}
	today := e.Today()

	var phase shared.PhaseCode
	found := false
	for _, s := range e.roster.ByBatch(b) {
		it, ok := e.sched.At(s.ID, today)
		if !ok {
			continue
		}
		found = true
		if p, known := e.catalog.PhaseOf(it.Rotation); known {
			phase = p
			break
		}
	}
	if !found {
		return status
	}

	status.Phase = phase
	status.PhaseName = e.PhaseName(phase)
	for _, s := range e.roster.ByBatch(b) {
		for _, it := range e.sched.ForStudent(s.ID) {
			if e.phaseOf(it.Rotation) != phase || phase == "" {
				continue
			}
			if status.Start.IsZero() || it.Start.Before(status.Start) {
				status.Start = it.Start
			}
			if it.End.After(status.End) {
				status.End = it.End
			}
		}
	}
	return status
}

// NextPhaseForBatch returns the phase after today's in the batch's sequence.
// It reports false when the batch has no phase today or is in its last one.
func (e *Engine) NextPhaseForBatch(b shared.Batch) (shared.PhaseCode, bool) {
	current := e.CurrentPhaseForBatch(b)
	if current.Phase == NoPhase {
		return "", false
	}
	return e.catalog.NextPhase(b, current.Phase)
}

// StudentCountInBatch counts the batch's students, placeholders included.
func (e *Engine) StudentCountInBatch(b shared.Batch) int {
	return e.roster.CountInBatch(b)
}

// ActualStudentCount counts students that are not quota placeholders.
func (e *Engine) ActualStudentCount() int {
	return e.roster.CountReal()
}
