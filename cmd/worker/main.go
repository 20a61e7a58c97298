// Package main is the background worker of the rotation scheduler.
//
// The worker keeps the schedule current and publishes the daily report:
// - roster_refresh reloads the roster and regenerates the schedule when it changed
// - daily_report writes the dashboard and the full CSV export for the day
//
// Schedule changes travel on an event bus; with Redis configured and the
// events.redis flag on, workers sharing the Redis see each other's events.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gimsr/rotation-scheduler/config"
	"github.com/gimsr/rotation-scheduler/internal/app"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/messaging"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/scheduler"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/scheduler/jobs"
	"github.com/gimsr/rotation-scheduler/internal/interface/cli"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration and infrastructure
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags := config.LoadFeatureFlags()

	a, err := app.New(ctx, cfg, app.Options{Output: os.Stdout})
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.Log.With(logger.Component("worker"))
	log.Info("starting worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	loc, err := time.LoadLocation(cfg.Worker.Timezone)
	if err != nil {
		return fmt.Errorf("worker timezone: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Event bus
	// ─────────────────────────────────────────────────────────────────────────
	bus, err := newEventBus(a, flags.IsEnabled(config.FeatureEventsRedis))
	if err != nil {
		return err
	}
	defer bus.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Jobs
	// ─────────────────────────────────────────────────────────────────────────
	current := &jobs.Current{}

	var importer jobs.RosterImporter
	if flags.IsEnabled(config.FeatureRosterImport) && a.Importer != nil && cfg.Roster.Source != config.RosterSourcePostgres {
		importer = a.Importer
	}
	refresh := jobs.NewRosterRefreshJob(a.Loader, a.Generator, importer, a.Catalog, current, a.Log, jobs.RosterRefreshConfig{
		Persist: cfg.Database.PersistSnapshots,
		Timeout: cfg.Worker.RefreshTimeout,
		Events:  bus,
	})

	var export jobs.RenderFunc
	if flags.IsEnabled(config.FeatureReportCSVExport) {
		export = cli.WriteFullExport
	}
	report := jobs.NewDailyReportJob(current, cfg.Worker.ReportDir, cli.WriteReport, export, a.Log)

	sched := scheduler.New(scheduler.Config{Logger: a.Log, Timezone: loc})
	if err := register(sched, refresh, cfg.Worker.RefreshSchedule, flags.IsEnabled(config.FeatureJobRosterRefresh)); err != nil {
		return err
	}
	if err := register(sched, report, cfg.Worker.ReportSchedule, flags.IsEnabled(config.FeatureJobDailyReport)); err != nil {
		return err
	}

	reportOnRefresh := flags.IsEnabled(config.FeatureReportOnRefresh) && flags.IsEnabled(config.FeatureJobDailyReport)
	if err := subscribe(ctx, bus, sched, report.Name(), reportOnRefresh, log); err != nil {
		return err
	}

	// The report job needs a published schedule, so build one before the
	// first tick.
	if _, err := sched.RunNow(ctx, refresh.Name()); err != nil {
		return fmt.Errorf("initial schedule: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Run until signalled
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return err
	}
	for _, j := range sched.ListJobs() {
		log.Info("job registered",
			logger.String("job", j.Name),
			logger.String("schedule", j.Schedule),
			logger.Bool("enabled", j.Enabled),
			logger.String("next_run", j.NextRun.Format(time.RFC3339)),
		)
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	stopped := make(chan error, 1)
	go func() { stopped <- sched.Stop() }()
	select {
	case err := <-stopped:
		if err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			return err
		}
	case <-time.After(cfg.Worker.ShutdownTimeout):
		log.Warn("shutdown timed out", logger.Duration("timeout", cfg.Worker.ShutdownTimeout))
	}

	m := sched.Metrics()
	em := bus.Metrics().Snapshot()
	log.Info("worker stopped",
		logger.Any("executions", m.TotalExecutions),
		logger.Float64("success_rate", m.SuccessRate),
		logger.Any("events_published", em.TotalPublished),
		logger.Any("event_handler_failures", em.HandlerFailures),
	)
	return nil
}

// eventBus is what the worker needs from either bus implementation.
type eventBus interface {
	shared.EventBus
	Close() error
	Metrics() *messaging.EventBusMetrics
}

// newEventBus returns the Redis bus when asked for and Redis is available,
// the in-memory bus otherwise.
func newEventBus(a *app.App, useRedis bool) (eventBus, error) {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = a.Log
	if !useRedis || a.Cache == nil {
		return messaging.NewInMemoryEventBus(local), nil
	}
	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client: messaging.NewGoRedisClient(a.Cache.Client()),
		Local:  local,
		Logger: a.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("redis event bus: %w", err)
	}
	return bus, nil
}

// subscribe attaches the worker's reactions to schedule events. Events from
// other workers are only logged; the local report follows the local schedule.
func subscribe(ctx context.Context, bus shared.EventSubscriber, sched *scheduler.Scheduler, reportJob string, reportOnRefresh bool, log *logger.Logger) error {
	if err := bus.Subscribe(shared.EventScheduleRefreshed, func(e shared.Event) error {
		_, remote := e.(messaging.EventEnvelope)
		log.Info("schedule refreshed",
			logger.String("fingerprint", e.AggregateID()),
			logger.Bool("remote", remote),
			logger.Any("students", e.Payload()["students"]),
		)
		if remote || !reportOnRefresh {
			return nil
		}
		if _, err := sched.RunNow(ctx, reportJob); err != nil && !errors.Is(err, scheduler.ErrJobRunning) {
			return err
		}
		return nil
	}); err != nil {
		return err
	}
	if err := bus.Subscribe(shared.EventConflictsDetected, func(e shared.Event) error {
		log.Warn("schedule has conflicts",
			logger.String("fingerprint", e.AggregateID()),
			logger.Any("count", e.Payload()["count"]),
		)
		return nil
	}); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventRosterFellBack, func(e shared.Event) error {
		log.Warn("roster fell back to fallback source",
			logger.String("fingerprint", e.AggregateID()),
			logger.Any("source", e.Payload()["source"]),
		)
		return nil
	})
}

// register parses spec and adds the job, disabled when its flag is off.
func register(s *scheduler.Scheduler, job scheduler.Job, spec string, enabled bool) error {
	schedule, err := scheduler.ParseSchedule(spec)
	if err != nil {
		return fmt.Errorf("%s schedule: %w", job.Name(), err)
	}
	if err := s.Register(job, schedule); err != nil {
		return err
	}
	if !enabled {
		return s.SetEnabled(job.Name(), false)
	}
	return nil
}
