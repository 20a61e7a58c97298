package roster

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
)

var (
	firstNames = []string{
		"John", "Jane", "Michael", "Emily", "David", "Sarah", "James", "Emma", "Robert", "Olivia",
		"William", "Sophia", "Joseph", "Ava", "Thomas", "Isabella", "Charles", "Mia", "Daniel", "Charlotte",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Miller", "Davis", "Garcia", "Rodriguez", "Wilson",
		"Martinez", "Anderson", "Taylor", "Thomas", "Hernandez", "Moore", "Martin", "Jackson", "Thompson", "White",
	}
)

// SyntheticSource produces a full roster of made-up students. The same seed
// always yields the same names.
type SyntheticSource struct {
	Seed     uint64
	PerBatch int
}

// NewSyntheticSource creates a new SyntheticSource.
func NewSyntheticSource(seed uint64, perBatch int) *SyntheticSource {
	return &SyntheticSource{Seed: seed, PerBatch: perBatch}
}

var _ Source = (*SyntheticSource)(nil)

// Name returns "synthetic".
func (s *SyntheticSource) Name() string { return "synthetic" }

// Fetch never fails.
func (s *SyntheticSource) Fetch(_ context.Context) ([]Record, error) {
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))

	records := make([]Record, 0, s.PerBatch*len(shared.AllBatches))
	for _, b := range shared.AllBatches {
		for i := 1; i <= s.PerBatch; i++ {
			records = append(records, Record{
				RegdNo: fmt.Sprintf("12201610%s%03d", b, i),
				Name:   firstNames[rng.IntN(len(firstNames))] + " " + lastNames[rng.IntN(len(lastNames))],
				Batch:  string(b),
			})
		}
	}
	return records, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Repository source
// ─────────────────────────────────────────────────────────────────────────────

// RepositorySource reads the roster previously stored with ReplaceAll.
// Stored placeholders are skipped so the loader pads them afresh.
type RepositorySource struct {
	repo student.Repository
}

// NewRepositorySource creates a new RepositorySource.
func NewRepositorySource(repo student.Repository) *RepositorySource {
	return &RepositorySource{repo: repo}
}

var _ Source = (*RepositorySource)(nil)

// Name returns "postgres".
func (s *RepositorySource) Name() string { return "postgres" }

// Fetch lists the stored students in batch and slot order.
func (s *RepositorySource) Fetch(ctx context.Context) ([]Record, error) {
	stored, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, shared.ErrRosterUnavailable.Wrap(err)
	}

	records := make([]Record, 0, len(stored))
	for _, st := range stored {
		if st.IsPlaceholder() {
			continue
		}
		records = append(records, Record{
			RegdNo: st.RegdNo,
			Name:   st.Name,
			Batch:  string(st.Batch),
		})
	}
	return records, nil
}
