package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RosterRepository implements student.Repository for PostgreSQL.
type RosterRepository struct {
	conn *Connection
}

// NewRosterRepository creates a new RosterRepository.
func NewRosterRepository(conn *Connection) *RosterRepository {
	return &RosterRepository{conn: conn}
}

var _ student.Repository = (*RosterRepository)(nil)

// ListAll returns every stored student ordered by batch then slot.
func (r *RosterRepository) ListAll(ctx context.Context) (student.Roster, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	rows, err := r.conn.Query(ctx, `
		SELECT id, regd_no, name, batch
		FROM students
		ORDER BY batch, ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	return scanRoster(rows)
}

// ReplaceAll swaps the stored roster for roster in one transaction.
func (r *RosterRepository) ReplaceAll(ctx context.Context, roster student.Roster) error {
	for _, s := range roster {
		if err := s.Validate(); err != nil {
			return err
		}
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM students`); err != nil {
			return fmt.Errorf("failed to clear students: %w", err)
		}
		if len(roster) == 0 {
			return nil
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"students"},
			[]string{"id", "regd_no", "name", "batch", "ordinal"},
			pgx.CopyFromSlice(len(roster), func(i int) ([]any, error) {
				return rosterRow(roster[i]), nil
			}),
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.WrapError("roster", "Store", shared.ErrAlreadyExists, "duplicate student slot", err)
			}
			return fmt.Errorf("failed to insert students: %w", err)
		}
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

// rosterRow maps a student to the students table column order.
func rosterRow(s student.Student) []any {
	return []any{s.ID, s.RegdNo, s.Name, string(s.Batch), s.Ordinal()}
}

func scanRoster(rows pgx.Rows) (student.Roster, error) {
	var roster student.Roster
	for rows.Next() {
		var id, regdNo, name, batch string
		if err := rows.Scan(&id, &regdNo, &name, &batch); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		s, err := studentFromRow(id, regdNo, name, batch)
		if err != nil {
			return nil, err
		}
		roster = append(roster, s)
	}
	return roster, rows.Err()
}

// studentFromRow rebuilds a student and rejects rows the domain would not accept.
func studentFromRow(id, regdNo, name, batch string) (student.Student, error) {
	b, err := shared.NewBatch(batch)
	if err != nil {
		return student.Student{}, shared.ErrRosterMalformed.Wrap(fmt.Errorf("student %s: %w", id, err))
	}
	s := student.Student{ID: id, RegdNo: regdNo, Name: name, Batch: b}
	if err := s.Validate(); err != nil {
		return student.Student{}, shared.ErrRosterMalformed.Wrap(err)
	}
	return s, nil
}
