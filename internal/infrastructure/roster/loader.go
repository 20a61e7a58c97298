package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT
// ══════════════════════════════════════════════════════════════════════════════

// LoadReport describes how the roster was obtained.
type LoadReport struct {
	// Source is the name of the source that supplied the roster.
	Source string

	// FellBack is set when the primary source failed.
	FellBack bool

	// Cause is the primary failure when FellBack is set.
	Cause error

	// Rows is the number of records the source returned.
	Rows int

	// Rejected lists the validation error of every dropped record.
	Rejected []error

	// Placeholders counts filler students added per batch.
	Placeholders map[shared.Batch]int

	// Truncated counts students dropped per batch for exceeding the quota.
	Truncated map[shared.Batch]int
}

// PlaceholderTotal sums Placeholders.
func (r LoadReport) PlaceholderTotal() int {
	n := 0
	for _, v := range r.Placeholders {
		n += v
	}
	return n
}

// TruncatedTotal sums Truncated.
func (r LoadReport) TruncatedTotal() int {
	n := 0
	for _, v := range r.Truncated {
		n += v
	}
	return n
}

// ══════════════════════════════════════════════════════════════════════════════
// NORMALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// Normalize turns raw records into a roster of exactly quota students per
// batch. Invalid records are dropped and reported. Within a batch the first
// quota valid records keep their source order and get ordinals 1..n; the
// rest are cut. Short batches are padded with placeholders.
func Normalize(records []Record, quota int) (student.Roster, LoadReport) {
	report := LoadReport{
		Rows:         len(records),
		Placeholders: make(map[shared.Batch]int),
		Truncated:    make(map[shared.Batch]int),
	}

	byBatch := make(map[shared.Batch][]Record, len(shared.AllBatches))
	for _, raw := range records {
		rec := raw.Normalize()
		if err := rec.Validate(); err != nil {
			report.Rejected = append(report.Rejected, err)
			continue
		}
		b := rec.BatchValue()
		byBatch[b] = append(byBatch[b], rec)
	}

	roster := make(student.Roster, 0, quota*len(shared.AllBatches))
	for _, b := range shared.AllBatches {
		recs := byBatch[b]
		if len(recs) > quota {
			report.Truncated[b] = len(recs) - quota
			recs = recs[:quota]
		}
		for i, rec := range recs {
			roster = append(roster, student.New(b, i+1, rec.RegdNo, rec.Name))
		}
		for i := len(recs) + 1; i <= quota; i++ {
			roster = append(roster, student.NewPlaceholder(b, i))
			report.Placeholders[b]++
		}
	}
	return roster, report
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADER
// ══════════════════════════════════════════════════════════════════════════════

// Loader reads the roster from a primary source and falls back to a second
// source when the primary fails or yields no valid rows.
type Loader struct {
	primary  Source
	fallback Source
	quota    int
	log      *logger.Logger
}

// NewLoader creates a Loader. fallback may be nil, in which case a primary
// failure is returned to the caller.
func NewLoader(primary, fallback Source, quota int, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		primary:  primary,
		fallback: fallback,
		quota:    quota,
		log:      log.With(logger.Component("roster_loader")),
	}
}

// Load returns a roster of exactly quota students per batch.
func (l *Loader) Load(ctx context.Context) (student.Roster, LoadReport, error) {
	if l.quota <= 0 {
		return nil, LoadReport{}, shared.WrapError("roster", "Load", shared.ErrValueOutOfRange,
			fmt.Sprintf("batch quota must be positive, got %d", l.quota), nil)
	}

	roster, report, err := l.loadFrom(ctx, l.primary)
	if err == nil {
		return roster, report, nil
	}
	if l.fallback == nil || errors.Is(err, context.Canceled) {
		return nil, report, err
	}

	l.log.Warn("primary roster source failed, falling back",
		logger.String("primary", l.primary.Name()),
		logger.String("fallback", l.fallback.Name()),
		logger.Err(err),
	)

	roster, report, fbErr := l.loadFrom(ctx, l.fallback)
	if fbErr != nil {
		return nil, report, errors.Join(err, fbErr)
	}
	report.FellBack = true
	report.Cause = err
	return roster, report, nil
}

func (l *Loader) loadFrom(ctx context.Context, src Source) (student.Roster, LoadReport, error) {
	start := time.Now()
	log := l.log.With(logger.String("source", src.Name()))

	records, err := src.Fetch(ctx)
	if err != nil {
		return nil, LoadReport{Source: src.Name()}, err
	}

	roster, report := Normalize(records, l.quota)
	report.Source = src.Name()

	for _, rej := range report.Rejected {
		log.Debug("roster row rejected", logger.Err(rej))
	}
	if len(report.Rejected) == len(records) {
		return nil, report, shared.ErrRosterEmpty
	}

	for _, b := range shared.AllBatches {
		if n := report.Placeholders[b]; n > 0 {
			log.Warn("batch padded with placeholders", logger.Batch(b.String()), logger.Int("count", n))
		}
		if n := report.Truncated[b]; n > 0 {
			log.Warn("batch over quota, extra students dropped", logger.Batch(b.String()), logger.Int("count", n))
		}
	}

	log.Info("roster loaded",
		logger.Int("rows", report.Rows),
		logger.Int("rejected", len(report.Rejected)),
		logger.Int("students", len(roster)),
		logger.Latency(time.Since(start)),
	)
	return roster, report, nil
}
