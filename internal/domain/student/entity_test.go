package student

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
)

func TestID_PadsOrdinal(t *testing.T) {
	assert.Equal(t, "A03", ID(shared.BatchA, 3))
	assert.Equal(t, "D34", ID(shared.BatchD, 34))
}

func TestNewPlaceholder(t *testing.T) {
	s := NewPlaceholder(shared.BatchB, 7)

	assert.Equal(t, "B07", s.ID)
	assert.Equal(t, "PLACEHOLDER-B7", s.RegdNo)
	assert.Equal(t, "Placeholder Student B7", s.Name)
	assert.True(t, s.IsPlaceholder())
	assert.False(t, New(shared.BatchB, 7, "1220161001", "Asha Rao").IsPlaceholder())
}

func TestMatches_IsCaseInsensitive(t *testing.T) {
	s := New(shared.BatchA, 1, "12201610A001", "Emily Davis")

	assert.True(t, s.Matches("emily"))
	assert.True(t, s.Matches("a001"))
	assert.False(t, s.Matches("john"))
	assert.False(t, s.Matches("  "))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, New(shared.BatchC, 1, "R1", "N").Validate())
	assert.ErrorIs(t, Student{ID: "X01", Batch: "X", RegdNo: "R", Name: "N"}.Validate(), shared.ErrInvalidBatch)
	assert.ErrorIs(t, New(shared.BatchC, 1, "", "N").Validate(), shared.ErrEmptyValue)
}

func TestRoster_Counts(t *testing.T) {
	r := Roster{
		New(shared.BatchA, 1, "R1", "One"),
		NewPlaceholder(shared.BatchA, 2),
		New(shared.BatchB, 1, "R2", "Two"),
	}

	assert.Equal(t, 2, r.CountReal())
	assert.Equal(t, 2, r.CountInBatch(shared.BatchA))
	assert.Len(t, r.ByBatch(shared.BatchB), 1)

	s, ok := r.Find("B01")
	assert.True(t, ok)
	assert.Equal(t, "R2 - Two", s.DisplayName())
	_, ok = r.Find("C01")
	assert.False(t, ok)
}

func TestOrdinal(t *testing.T) {
	assert.Equal(t, 7, New(shared.BatchD, 7, "R", "N").Ordinal())
	assert.Equal(t, 34, NewPlaceholder(shared.BatchA, 34).Ordinal())
	assert.Zero(t, Student{ID: "X"}.Ordinal())
	assert.Zero(t, Student{ID: "Abc"}.Ordinal())
}
