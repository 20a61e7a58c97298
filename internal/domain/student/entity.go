// Package student holds the roster model: the students of each batch and
// the rules for deriving their identifiers and placeholders.
// There are no external dependencies here.
package student

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// PlaceholderMarker prefixes the registration number of every filler student.
const PlaceholderMarker = "PLACEHOLDER"

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is one member of a batch. It is created at roster load time and
// never changes afterwards.
type Student struct {
	// ID is derived from batch and ordinal, e.g. "A03".
	ID     string
	RegdNo string
	Name   string
	Batch  shared.Batch
}

// ID builds the stable identifier for the ordinal-th (1-based) slot of a batch.
func ID(batch shared.Batch, ordinal int) string {
	return fmt.Sprintf("%s%02d", batch, ordinal)
}

// New creates a student for the given slot.
func New(batch shared.Batch, ordinal int, regdNo, name string) Student {
	return Student{
		ID:     ID(batch, ordinal),
		RegdNo: strings.TrimSpace(regdNo),
		Name:   strings.TrimSpace(name),
		Batch:  batch,
	}
}

// NewPlaceholder creates the filler student used when a batch is short.
func NewPlaceholder(batch shared.Batch, ordinal int) Student {
	return Student{
		ID:     ID(batch, ordinal),
		RegdNo: fmt.Sprintf("%s-%s%d", PlaceholderMarker, batch, ordinal),
		Name:   fmt.Sprintf("Placeholder Student %s%d", batch, ordinal),
		Batch:  batch,
	}
}

// IsPlaceholder reports whether the student was generated to fill the quota.
func (s Student) IsPlaceholder() bool {
	return strings.Contains(s.RegdNo, PlaceholderMarker)
}

// Ordinal returns the 1-based slot encoded in the ID, or 0 if the ID is
// not in batch-plus-number form.
func (s Student) Ordinal() int {
	if len(s.ID) < 2 {
		return 0
	}
	n, err := strconv.Atoi(s.ID[1:])
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// DisplayName renders "regdNo - name".
func (s Student) DisplayName() string {
	return s.RegdNo + " - " + s.Name
}

// Matches reports whether the query appears in the name or registration
// number, ignoring case. An empty query matches nothing.
func (s Student) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s.Name), q) ||
		strings.Contains(strings.ToLower(s.RegdNo), q)
}

// Validate checks the fields every roster student must carry.
func (s Student) Validate() error {
	if s.ID == "" {
		return shared.WrapError("student", "Validate", shared.ErrEmptyValue, "student ID is required", nil)
	}
	if !s.Batch.IsValid() {
		return shared.ErrInvalidBatch
	}
	if s.RegdNo == "" || s.Name == "" {
		return shared.WrapError("student", "Validate", shared.ErrEmptyValue,
			fmt.Sprintf("student %s needs a registration number and a name", s.ID), nil)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER
// ══════════════════════════════════════════════════════════════════════════════

// Roster is the full population of students ordered by batch then slot.
type Roster []Student

// ByBatch returns the students of one batch in slot order.
func (r Roster) ByBatch(b shared.Batch) []Student {
	out := make([]Student, 0, len(r)/len(shared.AllBatches)+1)
	for _, s := range r {
		if s.Batch == b {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the student with the given ID.
func (r Roster) Find(id string) (Student, bool) {
	for _, s := range r {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}

// Index maps student IDs to students.
func (r Roster) Index() map[string]Student {
	idx := make(map[string]Student, len(r))
	for _, s := range r {
		idx[s.ID] = s
	}
	return idx
}

// CountReal returns the number of students that are not placeholders.
func (r Roster) CountReal() int {
	n := 0
	for _, s := range r {
		if !s.IsPlaceholder() {
			n++
		}
	}
	return n
}

// CountInBatch returns the number of students in a batch, placeholders included.
func (r Roster) CountInBatch(b shared.Batch) int {
	n := 0
	for _, s := range r {
		if s.Batch == b {
			n++
		}
	}
	return n
}
