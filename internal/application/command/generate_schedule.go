// Package command contains write operations (CQRS - Commands).
// Commands turn a roster into a stored, cached schedule and keep the stored
// roster in step with its source.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gimsr/rotation-scheduler/internal/application/query"
	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/pkg/clock"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE SCHEDULE COMMAND
// Builds the year's schedule for a roster. A schedule already generated for
// the same roster fingerprint is reused from the cache or the snapshot store.
// ══════════════════════════════════════════════════════════════════════════════

// GenerateScheduleCommand contains the roster to schedule.
type GenerateScheduleCommand struct {
	// Roster must hold the full normalized roster.
	Roster student.Roster

	// Force skips the cache and snapshot lookups.
	Force bool

	// Persist stores a snapshot of a freshly generated schedule.
	Persist bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c GenerateScheduleCommand) Validate() error {
	if len(c.Roster) == 0 {
		return shared.ErrRosterEmpty
	}
	return nil
}

// Origin tells where a schedule came from.
type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginCache     Origin = "cache"
	OriginStore     Origin = "store"
)

// GenerateScheduleResult contains the engine over the schedule.
type GenerateScheduleResult struct {
	Engine      *query.Engine
	Snapshot    *schedule.Snapshot
	Fingerprint string
	Origin      Origin

	// Conflicts is the number of overlapping item pairs.
	Conflicts int

	// Persisted is set when a new snapshot was written to the store.
	Persisted bool
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotCache is the fast lookup of schedules by roster fingerprint.
type SnapshotCache interface {
	Get(ctx context.Context, fingerprint string) (*schedule.Snapshot, error)
	Set(ctx context.Context, snap *schedule.Snapshot) error
	Lock(ctx context.Context, fingerprint, owner string) (bool, error)
	Unlock(ctx context.Context, fingerprint, owner string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GenerateScheduleHandler handles the GenerateScheduleCommand.
type GenerateScheduleHandler struct {
	catalog   *catalog.Catalog
	clock     clock.Clock
	cache     SnapshotCache
	snapshots schedule.SnapshotRepository
	now       func() time.Time
	log       *logger.Logger
}

// NewGenerateScheduleHandler creates a new GenerateScheduleHandler.
// cache and snapshots may be nil.
func NewGenerateScheduleHandler(
	cat *catalog.Catalog,
	clk clock.Clock,
	cache SnapshotCache,
	snapshots schedule.SnapshotRepository,
	log *logger.Logger,
) *GenerateScheduleHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GenerateScheduleHandler{
		catalog:   cat,
		clock:     clk,
		cache:     cache,
		snapshots: snapshots,
		now:       time.Now,
		log:       log.With(logger.Component("generate_schedule")),
	}
}

// Handle executes the generate schedule command.
func (h *GenerateScheduleHandler) Handle(ctx context.Context, cmd GenerateScheduleCommand) (*GenerateScheduleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("generate_schedule: validation failed: %w", err)
	}

	log := h.log
	if cmd.CorrelationID != "" {
		log = log.With(logger.String("correlation_id", cmd.CorrelationID))
	}

	fp := schedule.Fingerprint(cmd.Roster, h.catalog)

	if !cmd.Force {
		if res := h.reuse(ctx, log, cmd.Roster, fp); res != nil {
			return res, nil
		}
	}

	owner := uuid.NewString()
	locked, contended := h.lock(ctx, log, fp, owner)
	if locked {
		defer func() {
			if err := h.cache.Unlock(context.WithoutCancel(ctx), fp, owner); err != nil {
				log.Warn("failed to release generation lock", logger.Err(err))
			}
		}()
	}

	start := time.Now()
	engine, err := query.New(cmd.Roster, h.catalog, h.clock)
	if err != nil {
		return nil, fmt.Errorf("generate_schedule: %w", err)
	}

	conflicts := len(engine.Conflicts(query.ConflictFilter{}))
	snap := schedule.NewSnapshot(uuid.NewString(), fp, h.catalog, cmd.Roster, engine.Schedule(), conflicts, h.now())

	log.Info("schedule generated",
		logger.SnapshotID(snap.ID),
		logger.Int("items", snap.ItemCount()),
		logger.Int("conflicts", conflicts),
		logger.Latency(time.Since(start)),
	)
	if conflicts > 0 {
		log.Warn("schedule has overlapping rotations", logger.Int("conflicts", conflicts))
	}

	result := &GenerateScheduleResult{
		Engine:      engine,
		Snapshot:    snap,
		Fingerprint: fp,
		Origin:      OriginGenerated,
		Conflicts:   conflicts,
	}

	// Another process is writing the same fingerprint.
	if contended {
		return result, nil
	}

	if cmd.Persist && h.snapshots != nil {
		if err := h.snapshots.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("generate_schedule: failed to save snapshot: %w", err)
		}
		result.Persisted = true
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, snap); err != nil {
			log.Warn("failed to cache schedule", logger.Err(err))
		}
	}

	return result, nil
}

// reuse looks the fingerprint up in the cache, then in the snapshot store.
// Lookup failures are logged and treated as misses.
func (h *GenerateScheduleHandler) reuse(ctx context.Context, log *logger.Logger, roster student.Roster, fp string) *GenerateScheduleResult {
	if h.cache != nil {
		snap, err := h.cache.Get(ctx, fp)
		switch {
		case err == nil:
			log.Debug("schedule served from cache", logger.SnapshotID(snap.ID))
			return h.resultFrom(roster, snap, OriginCache)
		case !errors.Is(err, shared.ErrSnapshotNotFound):
			log.Warn("schedule cache lookup failed", logger.Err(err))
		}
	}

	if h.snapshots != nil {
		snap, err := h.snapshots.Latest(ctx, fp)
		switch {
		case err == nil:
			log.Debug("schedule restored from store", logger.SnapshotID(snap.ID))
			if h.cache != nil {
				if err := h.cache.Set(ctx, snap); err != nil {
					log.Warn("failed to cache schedule", logger.Err(err))
				}
			}
			return h.resultFrom(roster, snap, OriginStore)
		case !errors.Is(err, shared.ErrSnapshotNotFound):
			log.Warn("snapshot lookup failed", logger.Err(err))
		}
	}

	return nil
}

func (h *GenerateScheduleHandler) resultFrom(roster student.Roster, snap *schedule.Snapshot, origin Origin) *GenerateScheduleResult {
	return &GenerateScheduleResult{
		Engine:      query.NewWithSchedule(roster, h.catalog, h.clock, snap.Schedule()),
		Snapshot:    snap,
		Fingerprint: snap.Fingerprint,
		Origin:      origin,
		Conflicts:   snap.ConflictCount,
	}
}

// lock tries to claim the fingerprint for owner. contended is set only when
// another owner holds it; a cache error leaves both false so the results are
// still written.
func (h *GenerateScheduleHandler) lock(ctx context.Context, log *logger.Logger, fp, owner string) (locked, contended bool) {
	if h.cache == nil {
		return false, false
	}
	ok, err := h.cache.Lock(ctx, fp, owner)
	if err != nil {
		log.Warn("failed to take generation lock", logger.Err(err))
		return false, false
	}
	if !ok {
		log.Debug("another process is generating this roster")
	}
	return ok, !ok
}
