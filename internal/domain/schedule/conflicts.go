package schedule

import (
	"sort"

	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// Conflict is a pair of items that put the same student in two places.
type Conflict struct {
	StudentID string
	First     Item
	Second    Item
	Overlap   timeutil.DateRange
}

// Days returns the number of overlapping days.
func (c Conflict) Days() int {
	return c.Overlap.Days()
}

// DetectConflicts compares every pair of items belonging to the same student
// and reports each pair sharing at least one day. A correctly generated
// schedule yields none. Results are ordered by student, then by the start
// of the overlap.
func DetectConflicts(items []Item) []Conflict {
	byStudent := make(map[string][]Item)
	for _, it := range items {
		byStudent[it.StudentID] = append(byStudent[it.StudentID], it)
	}

	ids := make([]string, 0, len(byStudent))
	for id := range byStudent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Conflict
	for _, id := range ids {
		list := byStudent[id]
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				overlap, ok := list[i].Range().Intersect(list[j].Range())
				if !ok {
					continue
				}
				out = append(out, Conflict{
					StudentID: id,
					First:     list[i],
					Second:    list[j],
					Overlap:   overlap,
				})
			}
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].StudentID != out[b].StudentID {
			return out[a].StudentID < out[b].StudentID
		}
		return out[a].Overlap.Start.Before(out[b].Overlap.Start)
	})
	return out
}
