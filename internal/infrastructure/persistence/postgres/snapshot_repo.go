package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotRepository implements schedule.SnapshotRepository for PostgreSQL.
type SnapshotRepository struct {
	conn *Connection
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(conn *Connection) *SnapshotRepository {
	return &SnapshotRepository{conn: conn}
}

var _ schedule.SnapshotRepository = (*SnapshotRepository)(nil)

// Save stores the snapshot header and copies its items in bulk.
// An empty ID is replaced with a fresh UUID.
func (r *SnapshotRepository) Save(ctx context.Context, s *schedule.Snapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return shared.WrapError("schedule", "SaveSnapshot", shared.ErrInvalidID, "snapshot ID must be a UUID", err)
	}

	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO schedule_snapshots
			(id, fingerprint, year_start, student_count, item_count, conflict_count, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			id,
			s.Fingerprint,
			s.YearStart,
			s.StudentCount,
			s.ItemCount(),
			s.ConflictCount,
			s.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}

		if len(s.Items) == 0 {
			return nil
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"schedule_items"},
			[]string{"snapshot_id", "student_id", "rotation", "start_date", "end_date"},
			pgx.CopyFromSlice(len(s.Items), func(i int) ([]any, error) {
				return itemRow(id, s.Items[i]), nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert schedule items: %w", err)
		}
		return nil
	})
}

// Latest returns the newest snapshot for fingerprint with all its items.
func (r *SnapshotRepository) Latest(ctx context.Context, fingerprint string) (*schedule.Snapshot, error) {
	ctx, cancel := r.conn.withTimeout(ctx)
	defer cancel()

	var (
		snap      schedule.Snapshot
		id        uuid.UUID
		itemCount int
	)
	err := r.conn.QueryRow(ctx, `
		SELECT id, fingerprint, year_start, student_count, item_count, conflict_count, generated_at
		FROM schedule_snapshots
		WHERE fingerprint = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`, fingerprint).Scan(
		&id,
		&snap.Fingerprint,
		&snap.YearStart,
		&snap.StudentCount,
		&itemCount,
		&snap.ConflictCount,
		&snap.GeneratedAt,
	)
	if IsNoRows(err) {
		return nil, shared.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	snap.ID = id.String()
	snap.YearStart = timeutil.StartOfDay(snap.YearStart)

	rows, err := r.conn.Query(ctx, `
		SELECT student_id, rotation, start_date, end_date
		FROM schedule_items
		WHERE snapshot_id = $1
		ORDER BY student_id, start_date
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule items: %w", err)
	}
	defer rows.Close()

	snap.Items = make([]schedule.Item, 0, itemCount)
	for rows.Next() {
		var (
			studentID, rotation string
			start, end          time.Time
		)
		if err := rows.Scan(&studentID, &rotation, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan schedule item: %w", err)
		}
		snap.Items = append(snap.Items, itemFromRow(studentID, rotation, start, end))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Row mapping
// ─────────────────────────────────────────────────────────────────────────────

// itemRow maps an item to the schedule_items column order.
func itemRow(snapshotID uuid.UUID, it schedule.Item) []any {
	return []any{snapshotID, it.StudentID, string(it.Rotation), it.Start, it.End}
}

// itemFromRow rebuilds an item on the scheduler's civil days.
func itemFromRow(studentID, rotation string, start, end time.Time) schedule.Item {
	return schedule.Item{
		StudentID: studentID,
		Rotation:  shared.RotationCode(rotation),
		Start:     timeutil.StartOfDay(start),
		End:       timeutil.StartOfDay(end),
	}
}
