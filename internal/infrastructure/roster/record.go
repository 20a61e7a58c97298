// Package roster reads the student roster from its configured source and
// shapes it into the fixed per-batch quota the schedule generator expects.
//
// Sources:
//   - CSVSource: a local file with the department's export columns
//   - HTTPSource: the same CSV served over HTTP, fetched with retries
//   - RepositorySource: the roster stored in PostgreSQL
//   - SyntheticSource: seeded fake students, the last-resort fallback
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is one raw roster row before ID assignment.
type Record struct {
	// Line is the 1-based source line, 0 when the source has no lines.
	Line   int    `validate:"-"`
	RegdNo string `validate:"required,max=64"`
	Name   string `validate:"required,max=200"`
	Batch  string `validate:"required,oneof=A B C D"`
}

var validate = validator.New()

// Normalize trims fields and upper-cases the batch letter.
func (r Record) Normalize() Record {
	r.RegdNo = strings.TrimSpace(r.RegdNo)
	r.Name = strings.TrimSpace(r.Name)
	r.Batch = strings.ToUpper(strings.TrimSpace(r.Batch))
	return r
}

// Validate checks a normalized record. The returned error names every
// offending field.
func (r Record) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return shared.WrapError("roster", "Parse", shared.ErrValidation,
		fmt.Sprintf("line %d: %s", r.Line, strings.Join(parts, ", ")), nil)
}

// BatchValue returns the record's batch. Call only after Validate succeeds.
func (r Record) BatchValue() shared.Batch {
	return shared.Batch(r.Batch)
}

// ══════════════════════════════════════════════════════════════════════════════
// SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// Source yields raw roster records.
type Source interface {
	// Name identifies the source in logs and reports.
	Name() string

	// Fetch returns every row the source holds, in source order.
	Fetch(ctx context.Context) ([]Record, error)
}
