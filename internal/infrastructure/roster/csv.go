package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
)

// Column headers of the department's roster export.
const (
	HeaderRegdNo = "Regd. No."
	HeaderName   = "Name of the student"
	HeaderBatch  = "Batch"
)

const utf8BOM = "\ufeff"

// ParseCSV reads a roster export. The first row must be the header; the
// three required columns may appear in any order among others. Rows missing
// any of the three values are returned as-is and rejected later by Validate.
// Fields keep their surrounding whitespace until Record.Normalize.
func ParseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, shared.ErrRosterEmpty
	}
	if err != nil {
		return nil, shared.ErrRosterMalformed.Wrap(fmt.Errorf("read header: %w", err))
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, shared.ErrRosterMalformed.Wrap(err)
		}
		if blank(row) {
			continue
		}

		line, _ := cr.FieldPos(0)
		records = append(records, Record{
			Line:   line,
			RegdNo: field(row, cols.regdNo),
			Name:   field(row, cols.name),
			Batch:  field(row, cols.batch),
		})
	}
	return records, nil
}

type columns struct {
	regdNo, name, batch int
}

func columnIndex(header []string) (columns, error) {
	cols := columns{regdNo: -1, name: -1, batch: -1}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		switch strings.TrimSpace(h) {
		case HeaderRegdNo:
			cols.regdNo = i
		case HeaderName:
			cols.name = i
		case HeaderBatch:
			cols.batch = i
		}
	}

	var missing []string
	if cols.regdNo < 0 {
		missing = append(missing, HeaderRegdNo)
	}
	if cols.name < 0 {
		missing = append(missing, HeaderName)
	}
	if cols.batch < 0 {
		missing = append(missing, HeaderBatch)
	}
	if len(missing) > 0 {
		return cols, shared.ErrRosterMalformed.Wrap(
			fmt.Errorf("missing columns: %s", strings.Join(missing, ", ")))
	}
	return cols, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────────────────────────────────────
// File source
// ─────────────────────────────────────────────────────────────────────────────

// CSVSource reads the roster from a local file.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a new CSVSource.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

var _ Source = (*CSVSource)(nil)

// Name returns "csv".
func (s *CSVSource) Name() string { return "csv" }

// Fetch opens and parses the file. A missing file is reported as an
// unavailable roster so the loader may fall back.
func (s *CSVSource) Fetch(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, shared.ErrRosterUnavailable.Wrap(err)
	}
	defer f.Close()

	return ParseCSV(f)
}
