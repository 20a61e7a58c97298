// Package catalog holds the static definitions the schedule is built from:
// rotations, phases, per-batch phase sequences and the academic calendar.
// The default catalog is embedded as YAML and validated on load.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

//go:embed catalog.yaml
var defaultYAML []byte

// Layout names the sub-group pattern a phase is scheduled with.
type Layout string

const (
	// LayoutMainCycle: half the batch on the main rotation, the other half
	// split in three cycling the minor rotations in two-week blocks; the
	// halves swap at mid-phase.
	LayoutMainCycle Layout = "main-cycle"
	// LayoutNestedCycle: main rotation for one half; the other half splits
	// into a paired-rotation group and a weekly three-way cycle that swap
	// roles every three weeks.
	LayoutNestedCycle Layout = "nested-cycle"
	// LayoutWeeklyCycle: four groups advance one rotation every week.
	LayoutWeeklyCycle Layout = "weekly-cycle"
	// LayoutPeriodCycle: four groups advance one rotation every quarter of the phase.
	LayoutPeriodCycle Layout = "period-cycle"
)

// rotationsFor is the number of rotation codes each layout needs.
var rotationsFor = map[Layout]int{
	LayoutMainCycle:   4,
	LayoutNestedCycle: 5,
	LayoutWeeklyCycle: 4,
	LayoutPeriodCycle: 4,
}

// Rotation is one clinical posting.
type Rotation struct {
	Code  shared.RotationCode `yaml:"code"`
	Name  string              `yaml:"name"`
	Phase shared.PhaseCode    `yaml:"-"`
}

// Phase is a block of the year devoted to one discipline.
type Phase struct {
	Code      shared.PhaseCode `yaml:"code"`
	Name      string           `yaml:"name"`
	Weeks     int              `yaml:"weeks"`
	Layout    Layout           `yaml:"layout"`
	Rotations []Rotation       `yaml:"rotations"`
}

// Codes returns the rotation codes of the phase in catalog order.
func (p Phase) Codes() []shared.RotationCode {
	out := make([]shared.RotationCode, len(p.Rotations))
	for i, r := range p.Rotations {
		out[i] = r.Code
	}
	return out
}

type document struct {
	AcademicYear struct {
		Start        string `yaml:"start"`
		Weeks        int    `yaml:"weeks"`
		DisplayWeeks int    `yaml:"display_weeks"`
	} `yaml:"academic_year"`
	BatchSize int                 `yaml:"batch_size"`
	Phases    []Phase             `yaml:"phases"`
	Sequences map[string][]string `yaml:"sequences"`
}

// Catalog is the immutable set of definitions. Use Load or Default.
type Catalog struct {
	yearStart    time.Time
	yearWeeks    int
	displayWeeks int
	batchSize    int
	phases       []Phase
	sequences    map[shared.Batch][]shared.PhaseCode

	phaseIdx    map[shared.PhaseCode]int
	rotationIdx map[shared.RotationCode]Rotation
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. It panics if the embedded YAML is
// invalid, which can only happen at development time.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(defaultYAML)
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

// Load parses and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, shared.ErrCatalogInvalid.Wrap(fmt.Errorf("parse yaml: %w", err))
	}

	start, err := timeutil.ParseDate(doc.AcademicYear.Start)
	if err != nil {
		return nil, shared.ErrCatalogInvalid.Wrap(err)
	}

	c := &Catalog{
		yearStart:    start,
		yearWeeks:    doc.AcademicYear.Weeks,
		displayWeeks: doc.AcademicYear.DisplayWeeks,
		batchSize:    doc.BatchSize,
		phases:       doc.Phases,
		sequences:    make(map[shared.Batch][]shared.PhaseCode, len(doc.Sequences)),
	}
	if c.displayWeeks == 0 {
		c.displayWeeks = c.yearWeeks + 1
	}

	for key, seq := range doc.Sequences {
		b, err := shared.NewBatch(key)
		if err != nil {
			return nil, shared.ErrCatalogInvalid.Wrap(fmt.Errorf("sequence %q: %w", key, err))
		}
		codes := make([]shared.PhaseCode, len(seq))
		for i, s := range seq {
			codes[i] = shared.PhaseCode(strings.ToUpper(strings.TrimSpace(s)))
		}
		c.sequences[b] = codes
	}

	c.buildIndex()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) buildIndex() {
	c.phaseIdx = make(map[shared.PhaseCode]int, len(c.phases))
	c.rotationIdx = make(map[shared.RotationCode]Rotation)
	for i := range c.phases {
		p := &c.phases[i]
		c.phaseIdx[p.Code] = i
		for j := range p.Rotations {
			p.Rotations[j].Phase = p.Code
			c.rotationIdx[p.Rotations[j].Code] = p.Rotations[j]
		}
	}
}

// Validate checks the structural invariants: every batch sequence is a
// distinct permutation of all phases and sums to the year length, every
// rotation code is unique, and every layout has the rotations it needs.
func (c *Catalog) Validate() error {
	var errs []string

	if c.batchSize <= 0 {
		errs = append(errs, "batch_size must be positive")
	}
	if c.yearWeeks <= 0 {
		errs = append(errs, "academic_year.weeks must be positive")
	}

	seen := make(map[shared.RotationCode]shared.PhaseCode)
	for _, p := range c.phases {
		if p.Weeks <= 0 {
			errs = append(errs, fmt.Sprintf("phase %s: weeks must be positive", p.Code))
		}
		need, ok := rotationsFor[p.Layout]
		if !ok {
			errs = append(errs, fmt.Sprintf("phase %s: unknown layout %q", p.Code, p.Layout))
		} else if len(p.Rotations) != need {
			errs = append(errs, fmt.Sprintf("phase %s: layout %s needs %d rotations, has %d", p.Code, p.Layout, need, len(p.Rotations)))
		}
		for _, r := range p.Rotations {
			if other, dup := seen[r.Code]; dup {
				errs = append(errs, fmt.Sprintf("rotation %s listed in both %s and %s", r.Code, other, p.Code))
			}
			seen[r.Code] = p.Code
		}
	}
	if len(c.phaseIdx) != len(c.phases) {
		errs = append(errs, "phase codes must be unique")
	}

	signatures := make(map[string]shared.Batch)
	for _, b := range shared.AllBatches {
		seq, ok := c.sequences[b]
		if !ok {
			errs = append(errs, fmt.Sprintf("batch %s has no phase sequence", b))
			continue
		}
		if len(seq) != len(c.phases) {
			errs = append(errs, fmt.Sprintf("batch %s: sequence has %d phases, want %d", b, len(seq), len(c.phases)))
		}
		weeks := 0
		used := make(map[shared.PhaseCode]bool, len(seq))
		for _, code := range seq {
			p, ok := c.Phase(code)
			if !ok {
				errs = append(errs, fmt.Sprintf("batch %s: unknown phase %s", b, code))
				continue
			}
			if used[code] {
				errs = append(errs, fmt.Sprintf("batch %s: phase %s repeated", b, code))
			}
			used[code] = true
			weeks += p.Weeks
		}
		if weeks != c.yearWeeks {
			errs = append(errs, fmt.Sprintf("batch %s: phases sum to %d weeks, want %d", b, weeks, c.yearWeeks))
		}
		sig := fmt.Sprint(seq)
		if other, dup := signatures[sig]; dup {
			errs = append(errs, fmt.Sprintf("batches %s and %s share the same phase order", other, b))
		}
		signatures[sig] = b
	}

	if len(errs) > 0 {
		return shared.ErrCatalogInvalid.Wrap(fmt.Errorf("%s", strings.Join(errs, "; ")))
	}
	return nil
}

// WithYearStart returns a copy of the catalog whose academic year begins on start.
func (c *Catalog) WithYearStart(start time.Time) *Catalog {
	cp := *c
	cp.yearStart = timeutil.StartOfDay(start)
	return &cp
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR
// ══════════════════════════════════════════════════════════════════════════════

// YearStart is the first day of the academic year.
func (c *Catalog) YearStart() time.Time { return c.yearStart }

// YearWeeks is the scheduled length of the year in weeks.
func (c *Catalog) YearWeeks() int { return c.yearWeeks }

// DisplayWeeks is the number of week rows shown in a full-year view.
func (c *Catalog) DisplayWeeks() int { return c.displayWeeks }

// BatchSize is the fixed number of students per batch.
func (c *Catalog) BatchSize() int { return c.batchSize }

// Year is the inclusive span covered by the schedule.
func (c *Catalog) Year() timeutil.DateRange {
	return timeutil.WeeksFrom(c.yearStart, c.yearWeeks)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOKUPS
// ══════════════════════════════════════════════════════════════════════════════

// Phases returns all phases in catalog order.
func (c *Catalog) Phases() []Phase {
	return append([]Phase(nil), c.phases...)
}

// Phase looks up a phase by code.
func (c *Catalog) Phase(code shared.PhaseCode) (Phase, bool) {
	i, ok := c.phaseIdx[code]
	if !ok {
		return Phase{}, false
	}
	return c.phases[i], true
}

// Rotation looks up a rotation by code.
func (c *Catalog) Rotation(code shared.RotationCode) (Rotation, bool) {
	r, ok := c.rotationIdx[code]
	return r, ok
}

// Rotations returns every rotation sorted by phase code then rotation code.
func (c *Catalog) Rotations() []Rotation {
	out := make([]Rotation, 0, len(c.rotationIdx))
	for _, p := range c.phases {
		out = append(out, p.Rotations...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Phase != out[j].Phase {
			return out[i].Phase < out[j].Phase
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// RotationName returns the display name of a rotation, or the code itself
// when the catalog does not know it.
func (c *Catalog) RotationName(code shared.RotationCode) string {
	if r, ok := c.rotationIdx[code]; ok {
		return r.Name
	}
	return string(code)
}

// PhaseName returns the display name of a phase, or the code itself.
func (c *Catalog) PhaseName(code shared.PhaseCode) string {
	if p, ok := c.Phase(code); ok {
		return p.Name
	}
	return string(code)
}

// PhaseOf returns the phase a rotation belongs to.
func (c *Catalog) PhaseOf(code shared.RotationCode) (shared.PhaseCode, bool) {
	r, ok := c.rotationIdx[code]
	return r.Phase, ok
}

// Sequence returns the ordered phases of a batch.
func (c *Catalog) Sequence(b shared.Batch) []shared.PhaseCode {
	return append([]shared.PhaseCode(nil), c.sequences[b]...)
}

// NextPhase returns the phase after current in the batch's sequence.
// It reports false at the last phase or when current is not in the sequence.
func (c *Catalog) NextPhase(b shared.Batch, current shared.PhaseCode) (shared.PhaseCode, bool) {
	seq := c.sequences[b]
	for i, code := range seq {
		if code == current && i+1 < len(seq) {
			return seq[i+1], true
		}
	}
	return "", false
}
