package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

func TestDefault_Loads(t *testing.T) {
	c := Default()

	assert.Equal(t, timeutil.Date(2025, 4, 1), c.YearStart())
	assert.Equal(t, 52, c.YearWeeks())
	assert.Equal(t, 53, c.DisplayWeeks())
	assert.Equal(t, 34, c.BatchSize())
	assert.Len(t, c.Phases(), 5)
	assert.Len(t, c.Rotations(), 21)
	assert.Equal(t, timeutil.Date(2026, 3, 30), c.Year().End)
}

func TestSequences_SumToYearAndAreStaggered(t *testing.T) {
	c := Default()
	seen := map[string]bool{}

	for _, b := range shared.AllBatches {
		seq := c.Sequence(b)
		require.Len(t, seq, 5)

		weeks := 0
		for _, code := range seq {
			p, ok := c.Phase(code)
			require.True(t, ok)
			weeks += p.Weeks
		}
		assert.Equal(t, 52, weeks, "batch %s", b)

		key := strings.Join(phaseStrings(seq), ",")
		assert.False(t, seen[key], "batch %s repeats another batch's order", b)
		seen[key] = true

		assert.ElementsMatch(t, c.Sequence(shared.BatchA), seq)
	}

	first := map[shared.PhaseCode]bool{}
	for _, b := range shared.AllBatches {
		first[c.Sequence(b)[0]] = true
	}
	assert.Len(t, first, 4, "every batch starts in a different phase")
}

func TestLookups_FallBackToCode(t *testing.T) {
	c := Default()

	assert.Equal(t, "General Medicine", c.RotationName("GM"))
	assert.Equal(t, "XX", c.RotationName("XX"))
	assert.Equal(t, "Community Medicine", c.PhaseName(shared.PhaseCommunity))
	assert.Equal(t, "ZZZ", c.PhaseName("ZZZ"))

	phase, ok := c.PhaseOf("DE")
	assert.True(t, ok)
	assert.Equal(t, shared.PhaseOBGY, phase)

	_, ok = c.PhaseOf("XX")
	assert.False(t, ok)
}

func TestNextPhase(t *testing.T) {
	c := Default()

	next, ok := c.NextPhase(shared.BatchB, shared.PhaseOBGY)
	assert.True(t, ok)
	assert.Equal(t, shared.PhaseOthers, next)

	_, ok = c.NextPhase(shared.BatchA, shared.PhaseCommunity)
	assert.False(t, ok)
}

func TestRotations_SortedByPhaseThenCode(t *testing.T) {
	rs := Default().Rotations()

	assert.Equal(t, shared.RotationCode("CH"), rs[0].Code)
	assert.Equal(t, shared.PhaseCommunity, rs[0].Phase)
	for i := 1; i < len(rs); i++ {
		prev, cur := rs[i-1], rs[i]
		assert.True(t, prev.Phase < cur.Phase || (prev.Phase == cur.Phase && prev.Code < cur.Code))
	}
}

func TestLoad_RejectsBadCatalog(t *testing.T) {
	bad := strings.Replace(string(defaultYAML), "weeks: 4\n", "weeks: 5\n", 1)

	_, err := Load([]byte(bad))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrCatalogInvalid)
	assert.Contains(t, err.Error(), "phases sum to 53 weeks")
}

func TestLoad_RejectsDuplicateOrder(t *testing.T) {
	bad := strings.Replace(string(defaultYAML),
		"B: [SUR, OBG, OTH, COM, MED]", "B: [MED, SUR, OBG, OTH, COM]", 1)

	_, err := Load([]byte(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share the same phase order")
}

func TestWithYearStart(t *testing.T) {
	c := Default().WithYearStart(timeutil.Date(2026, 4, 1))

	assert.Equal(t, timeutil.Date(2026, 4, 1), c.YearStart())
	assert.Equal(t, timeutil.Date(2025, 4, 1), Default().YearStart())
}

func phaseStrings(codes []shared.PhaseCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
