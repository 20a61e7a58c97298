package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

func TestFingerprint_IsStableAndSensitive(t *testing.T) {
	cat := catalog.Default()
	roster := fullRoster(34)

	fp := Fingerprint(roster, cat)
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint(fullRoster(34), cat))

	renamed := fullRoster(34)
	renamed[5].Name = "Someone Else"
	assert.NotEqual(t, fp, Fingerprint(renamed, cat))

	shifted := cat.WithYearStart(timeutil.Date(2026, 4, 1))
	assert.NotEqual(t, fp, Fingerprint(roster, shifted))
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	cat := catalog.Default()
	a := fullRoster(1)
	b := fullRoster(1)
	a[0].RegdNo, a[0].Name = "R1", "X"
	b[0].RegdNo, b[0].Name = "R", "1X"
	assert.NotEqual(t, Fingerprint(a, cat), Fingerprint(b, cat))
}

func TestNewSnapshot(t *testing.T) {
	cat := catalog.Default()
	roster := fullRoster(34)
	s, err := Generate(roster, cat)
	require.NoError(t, err)

	at := time.Date(2025, 4, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	snap := NewSnapshot("id-1", Fingerprint(roster, cat), cat, roster, s, 0, at)

	assert.Equal(t, 136, snap.StudentCount)
	assert.Equal(t, s.Len(), snap.ItemCount())
	assert.Equal(t, yearStart, snap.YearStart)
	assert.Equal(t, time.UTC, snap.GeneratedAt.Location())
	assert.Equal(t, s.ForStudent("B07"), snap.Schedule().ForStudent("B07"))
}
