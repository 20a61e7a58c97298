package schedule

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// A generated schedule frozen with the inputs it came from.
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot records one generation run.
type Snapshot struct {
	ID            string
	Fingerprint   string
	YearStart     time.Time
	StudentCount  int
	ConflictCount int
	GeneratedAt   time.Time
	Items         []Item
}

// NewSnapshot freezes s under id. The item slice is copied.
func NewSnapshot(id, fingerprint string, cat *catalog.Catalog, roster student.Roster, s *Schedule, conflicts int, at time.Time) *Snapshot {
	return &Snapshot{
		ID:            id,
		Fingerprint:   fingerprint,
		YearStart:     cat.YearStart(),
		StudentCount:  len(roster),
		ConflictCount: conflicts,
		GeneratedAt:   at.UTC(),
		Items:         s.Items(),
	}
}

// ItemCount returns the number of items in the snapshot.
func (s *Snapshot) ItemCount() int {
	return len(s.Items)
}

// Schedule rebuilds the indexed schedule from the snapshot's items.
func (s *Snapshot) Schedule() *Schedule {
	return New(s.Items)
}

// SnapshotRepository stores generation runs.
type SnapshotRepository interface {
	// Save stores the snapshot and its items.
	Save(ctx context.Context, s *Snapshot) error

	// Latest returns the newest snapshot with the given fingerprint, or
	// shared.ErrSnapshotNotFound.
	Latest(ctx context.Context, fingerprint string) (*Snapshot, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// FINGERPRINT
// ══════════════════════════════════════════════════════════════════════════════

// Fingerprint hashes everything generation depends on: the year start, the
// phase layouts and batch sequences of the catalog, and every roster row in
// order. Equal fingerprints mean equal schedules.
func Fingerprint(roster student.Roster, cat *catalog.Catalog) string {
	h, _ := blake2b.New256(nil)

	fmt.Fprintf(h, "year=%s weeks=%d\n", timeutil.FormatDateStr(cat.YearStart()), cat.YearWeeks())
	for _, p := range cat.Phases() {
		fmt.Fprintf(h, "phase=%s layout=%s weeks=%d codes=%v\n", p.Code, p.Layout, p.Weeks, p.Codes())
	}
	for _, b := range shared.AllBatches {
		fmt.Fprintf(h, "seq %s=%v\n", b, cat.Sequence(b))
	}
	for _, s := range roster {
		writeField(h, s.ID)
		writeField(h, s.RegdNo)
		writeField(h, s.Name)
		writeField(h, string(s.Batch))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed value so adjacent fields cannot run
// into each other.
func writeField(w io.Writer, v string) {
	fmt.Fprintf(w, "%d:%s", len(v), v)
}
