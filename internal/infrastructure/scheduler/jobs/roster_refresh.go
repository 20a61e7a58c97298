package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/application/command"
	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/roster"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER REFRESH JOB
// ══════════════════════════════════════════════════════════════════════════════

// RosterLoader yields a normalized roster.
type RosterLoader interface {
	Load(ctx context.Context) (student.Roster, roster.LoadReport, error)
}

// ScheduleGenerator turns a roster into a schedule.
type ScheduleGenerator interface {
	Handle(ctx context.Context, cmd command.GenerateScheduleCommand) (*command.GenerateScheduleResult, error)
}

// RosterImporter stores a roster.
type RosterImporter interface {
	Handle(ctx context.Context, cmd command.ImportRosterCommand) (*command.ImportRosterResult, error)
}

// RosterRefreshConfig contains configuration for the refresh job.
type RosterRefreshConfig struct {
	// Persist stores a snapshot of every newly generated schedule.
	Persist bool

	// Timeout bounds one run.
	Timeout time.Duration

	// Events, when set, receives a ScheduleRefreshed event for every newly
	// published schedule, plus ConflictsDetected and RosterFellBack when they
	// apply.
	Events shared.EventPublisher
}

// RefreshStats describes the last run.
type RefreshStats struct {
	StartedAt   time.Time
	Duration    time.Duration
	Source      string
	FellBack    bool
	Changed     bool
	Fingerprint string
	Origin      command.Origin
	Conflicts   int
	Imported    int
}

// RosterRefreshJob reloads the roster and regenerates the schedule when the
// roster fingerprint changed since the last run.
type RosterRefreshJob struct {
	loader    RosterLoader
	generator ScheduleGenerator
	importer  RosterImporter
	catalog   *catalog.Catalog
	current   *Current
	log       *logger.Logger
	config    RosterRefreshConfig

	mu    sync.Mutex
	stats RefreshStats
}

// NewRosterRefreshJob creates a new refresh job. importer may be nil; when
// set, every changed roster is mirrored into the store.
func NewRosterRefreshJob(
	loader RosterLoader,
	generator ScheduleGenerator,
	importer RosterImporter,
	cat *catalog.Catalog,
	current *Current,
	log *logger.Logger,
	config RosterRefreshConfig,
) *RosterRefreshJob {
	if log == nil {
		log = logger.Nop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &RosterRefreshJob{
		loader:    loader,
		generator: generator,
		importer:  importer,
		catalog:   cat,
		current:   current,
		log:       log.With(logger.Component("roster_refresh")),
		config:    config,
	}
}

// Name returns the job name.
func (j *RosterRefreshJob) Name() string { return "roster_refresh" }

// Description returns a human-readable description of the job.
func (j *RosterRefreshJob) Description() string {
	return "Reloads the roster and regenerates the schedule when it changed"
}

// Run executes the job.
func (j *RosterRefreshJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	stats := RefreshStats{StartedAt: time.Now()}
	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		j.mu.Lock()
		j.stats = stats
		j.mu.Unlock()
	}()

	r, report, err := j.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("roster_refresh: load roster: %w", err)
	}
	stats.Source = report.Source
	stats.FellBack = report.FellBack

	fp := schedule.Fingerprint(r, j.catalog)
	stats.Fingerprint = fp
	if j.current.Engine() != nil && fp == j.current.Fingerprint() {
		j.log.Debug("roster unchanged", logger.String("fingerprint", fp))
		return nil
	}
	stats.Changed = true

	res, err := j.generator.Handle(ctx, command.GenerateScheduleCommand{
		Roster:  r,
		Persist: j.config.Persist,
	})
	if err != nil {
		return fmt.Errorf("roster_refresh: %w", err)
	}
	stats.Origin = res.Origin
	stats.Conflicts = res.Conflicts

	j.current.Publish(res.Engine, fp)

	if j.importer != nil && !report.FellBack {
		imported, err := j.importer.Handle(ctx, command.ImportRosterCommand{Roster: r})
		if err != nil {
			return fmt.Errorf("roster_refresh: %w", err)
		}
		stats.Imported = imported.Stored
	}

	j.emit(shared.NewScheduleRefreshedEvent(fp, report.Source, string(res.Origin), len(r), res.Conflicts))
	if res.Conflicts > 0 {
		j.emit(shared.NewConflictsDetectedEvent(fp, res.Conflicts))
	}
	if report.FellBack {
		j.emit(shared.NewRosterFellBackEvent(fp, report.Source))
	}

	j.log.Info("schedule refreshed",
		logger.String("source", report.Source),
		logger.Bool("fell_back", report.FellBack),
		logger.String("origin", string(res.Origin)),
		logger.Int("students", len(r)),
		logger.Int("conflicts", res.Conflicts),
	)
	return nil
}

func (j *RosterRefreshJob) emit(e shared.Event) {
	if j.config.Events == nil {
		return
	}
	if err := j.config.Events.Publish(e); err != nil {
		j.log.Warn("publish event", logger.String("event_type", string(e.EventType())), logger.Err(err))
	}
}

// LastStats returns statistics of the last run.
func (j *RosterRefreshJob) LastStats() RefreshStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}
