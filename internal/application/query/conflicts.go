package query

import (
	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFLICT REPORT
// Conflicts are data: an empty report is the expected outcome.
// ══════════════════════════════════════════════════════════════════════════════

// ConflictFilter narrows the conflict report. Empty or "all" fields do not filter.
type ConflictFilter struct {
	Batch string
	Phase string
}

// ConflictDTO is one overlapping pair of items for a roster student.
type ConflictDTO struct {
	StudentID   string              `json:"student_id"`
	StudentName string              `json:"student_name"`
	RegdNo      string              `json:"regd_no"`
	Batch       shared.Batch        `json:"batch"`
	RotationA   shared.RotationCode `json:"rotation_a"`
	RotationB   shared.RotationCode `json:"rotation_b"`
	Overlap     timeutil.DateRange  `json:"-"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	DaysOverlap int                 `json:"days_overlap"`
}

// Conflicts checks every roster student matching f for pairs of items that
// share a day. With a phase filter only that phase's items are compared.
func (e *Engine) Conflicts(f ConflictFilter) []ConflictDTO {
	var items []schedule.Item
	for _, s := range e.roster {
		if !isAll(f.Batch) && string(s.Batch) != f.Batch {
			continue
		}
		for _, it := range e.sched.ForStudent(s.ID) {
			if !isAll(f.Phase) && string(e.phaseOf(it.Rotation)) != f.Phase {
				continue
			}
			items = append(items, it)
		}
	}

	found := schedule.DetectConflicts(items)
	out := make([]ConflictDTO, 0, len(found))
	for _, c := range found {
		s := e.students[c.StudentID]
		out = append(out, ConflictDTO{
			StudentID:   c.StudentID,
			StudentName: s.Name,
			RegdNo:      s.RegdNo,
			Batch:       s.Batch,
			RotationA:   c.First.Rotation,
			RotationB:   c.Second.Rotation,
			Overlap:     c.Overlap,
			StartDate:   timeutil.FormatDateStr(c.Overlap.Start),
			EndDate:     timeutil.FormatDateStr(c.Overlap.End),
			DaysOverlap: c.Days(),
		})
	}
	return out
}
