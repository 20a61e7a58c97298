// Package app wires configuration into the running components shared by the
// scheduler command and the worker: catalog, clock, roster loader, optional
// PostgreSQL and Redis, and the application handlers.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gimsr/rotation-scheduler/config"
	"github.com/gimsr/rotation-scheduler/internal/application/command"
	"github.com/gimsr/rotation-scheduler/internal/domain/catalog"
	"github.com/gimsr/rotation-scheduler/internal/domain/schedule"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/persistence/postgres"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/persistence/redis"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/roster"
	"github.com/gimsr/rotation-scheduler/pkg/circuitbreaker"
	"github.com/gimsr/rotation-scheduler/pkg/clock"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// App holds the wired components. Fields for optional backends are nil when
// the backend is not configured.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Catalog *catalog.Catalog
	Clock   *clock.Override

	Loader    *roster.Loader
	Generator *command.GenerateScheduleHandler
	Importer  *command.ImportRosterHandler

	DB    *postgres.Connection
	Cache *redis.Cache

	closers []func()
}

// Options adjusts wiring for a particular binary.
type Options struct {
	// Output receives log lines. Defaults to stderr so command output on
	// stdout stays clean.
	Output io.Writer

	// SkipMigrations leaves the schema alone after connecting.
	SkipMigrations bool
}

// NewLogger builds the process logger from the observability settings.
func NewLogger(cfg config.ObservabilityConfig, out io.Writer) *logger.Logger {
	if out == nil {
		out = os.Stderr
	}
	return logger.New(logger.Options{
		Output: out,
		Level:  logger.ParseLevel(cfg.LogLevel),
		Pretty: cfg.LogFormat == "text",
	})
}

// New wires every component. On error whatever was already opened is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{
		Config: cfg,
		Log:    NewLogger(cfg.Observability, opts.Output).With(logger.String("app", cfg.App.Name)),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 1. Catalog and clock
	// ─────────────────────────────────────────────────────────────────────────
	a.Catalog = catalog.Default()
	if cfg.Academic.YearStart != "" {
		start, err := timeutil.ParseDate(cfg.Academic.YearStart)
		if err != nil {
			return nil, fmt.Errorf("academic year start: %w", err)
		}
		a.Catalog = a.Catalog.WithYearStart(start)
	}

	a.Clock = clock.NewOverride(clock.Real{})
	if cfg.Academic.Today != "" {
		today, err := timeutil.ParseDate(cfg.Academic.Today)
		if err != nil {
			return nil, fmt.Errorf("today override: %w", err)
		}
		a.Clock.Set(today)
		a.Log.Info("today pinned", logger.Date("today", today))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. PostgreSQL (optional)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.URL != "" {
		if err := a.connectDatabase(ctx, opts.SkipMigrations); err != nil {
			return nil, err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Redis (optional)
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Redis.Disabled {
		if err := a.connectCache(ctx); err != nil {
			return nil, err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Roster loader
	// ─────────────────────────────────────────────────────────────────────────
	primary, err := a.rosterSource()
	if err != nil {
		return nil, err
	}
	var fallback roster.Source
	if cfg.Roster.FallbackToSynthetic && cfg.Roster.Source != config.RosterSourceSynthetic {
		fallback = roster.NewSyntheticSource(a.seed(), a.Catalog.BatchSize())
	}
	a.Loader = roster.NewLoader(primary, fallback, a.Catalog.BatchSize(), a.Log)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Application handlers
	// ─────────────────────────────────────────────────────────────────────────
	var cache command.SnapshotCache
	if a.Cache != nil {
		cache = redis.NewScheduleCache(a.Cache, cfg.Redis.SnapshotTTL)
	}
	var snapshots schedule.SnapshotRepository
	if a.DB != nil {
		snapshots = postgres.NewGuardedSnapshots(postgres.NewSnapshotRepository(a.DB), a.databaseBreaker())
		a.Importer = command.NewImportRosterHandler(postgres.NewRosterRepository(a.DB))
	}
	a.Generator = command.NewGenerateScheduleHandler(a.Catalog, a.Clock, cache, snapshots, a.Log)

	a.Log.Info("application wired",
		logger.String("roster_source", string(cfg.Roster.Source)),
		logger.Bool("postgres", a.DB != nil),
		logger.Bool("redis", a.Cache != nil),
		logger.Date("year_start", a.Catalog.YearStart()),
	)
	return a, nil
}

func (a *App) connectDatabase(ctx context.Context, skipMigrations bool) error {
	db := a.Config.Database
	a.Log.Info("connecting to database")
	conn, err := postgres.NewConnection(ctx, postgres.Config{
		URL:             db.URL,
		MaxConns:        int32(db.MaxOpenConns),
		MinConns:        int32(db.MaxIdleConns),
		MaxConnLifetime: db.ConnMaxLifetime,
		MaxConnIdleTime: db.ConnMaxIdleTime,
		QueryTimeout:    db.QueryTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.DB = conn
	a.closers = append(a.closers, func() {
		a.Log.Info("closing database connection")
		conn.Close()
	})

	if skipMigrations {
		return nil
	}
	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (a *App) connectCache(ctx context.Context) error {
	rc := a.Config.Redis
	a.Log.Info("connecting to redis")
	cfg := redis.DefaultConfig()
	cfg.URL = rc.URL
	cfg.Host = rc.Host
	cfg.Port = rc.Port
	cfg.Password = rc.Password
	cfg.DB = rc.DB
	cfg.PoolSize = rc.PoolSize
	cfg.MinIdleConns = rc.MinIdleConns
	cfg.DialTimeout = rc.DialTimeout
	cfg.ReadTimeout = rc.ReadTimeout
	cfg.WriteTimeout = rc.WriteTimeout

	cache, err := redis.NewCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	a.Cache = cache
	a.closers = append(a.closers, func() {
		if err := cache.Close(); err != nil {
			a.Log.Warn("close redis", logger.Err(err))
		}
	})
	return nil
}

func (a *App) rosterSource() (roster.Source, error) {
	rc := a.Config.Roster
	switch rc.Source {
	case config.RosterSourceCSV:
		return roster.NewCSVSource(rc.CSVPath), nil
	case config.RosterSourceHTTP:
		return roster.NewHTTPSource(roster.HTTPConfig{
			URL:            rc.URL,
			Timeout:        rc.FetchTimeout,
			MaxAttempts:    rc.MaxAttempts,
			RetryBaseDelay: rc.RetryBaseDelay,
			Logger:         a.Log,
		}), nil
	case config.RosterSourcePostgres:
		if a.DB == nil {
			return nil, fmt.Errorf("roster source %q needs DATABASE_URL", rc.Source)
		}
		return roster.NewRepositorySource(postgres.NewRosterRepository(a.DB)), nil
	case config.RosterSourceSynthetic:
		return roster.NewSyntheticSource(a.seed(), a.Catalog.BatchSize()), nil
	default:
		return nil, fmt.Errorf("unknown roster source %q", rc.Source)
	}
}

// seed returns the configured synthetic seed, or a time-based one for zero.
func (a *App) seed() uint64 {
	if s := a.Config.Roster.Seed; s != 0 {
		return uint64(s)
	}
	return uint64(time.Now().UnixNano())
}

func (a *App) databaseBreaker() *circuitbreaker.CircuitBreaker {
	return circuitbreaker.DatabaseBreaker(func(t circuitbreaker.Transition) {
		a.Log.Warn("snapshot store breaker "+t.To.String(),
			logger.String("from", t.From.String()),
			logger.Int("failures", t.Failures),
			logger.Any("retry_at", t.RetryAt),
			logger.Err(t.Cause),
		)
	})
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// GenerateResult is a generated schedule together with how its roster was
// obtained.
type GenerateResult struct {
	*command.GenerateScheduleResult
	Report roster.LoadReport
}

// Generate loads the roster and builds, or reuses, its schedule.
func (a *App) Generate(ctx context.Context, force bool) (*GenerateResult, error) {
	r, report, err := a.Loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	res, err := a.Generator.Handle(ctx, command.GenerateScheduleCommand{
		Roster:  r,
		Force:   force,
		Persist: a.Config.Database.PersistSnapshots,
	})
	if err != nil {
		return nil, err
	}
	return &GenerateResult{GenerateScheduleResult: res, Report: report}, nil
}
