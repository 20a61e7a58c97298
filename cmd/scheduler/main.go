// Package main is the command-line entry point of the rotation scheduler.
//
// It loads the roster, generates (or reuses) the year's rotation schedule and
// answers questions about it: the dashboard report, a student's year, who is
// on a rotation today, conflicts, and CSV exports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gimsr/rotation-scheduler/config"
	"github.com/gimsr/rotation-scheduler/internal/app"
	"github.com/gimsr/rotation-scheduler/internal/application/command"
	"github.com/gimsr/rotation-scheduler/internal/application/query"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/internal/domain/student"
	"github.com/gimsr/rotation-scheduler/internal/infrastructure/persistence/postgres"
	clipres "github.com/gimsr/rotation-scheduler/internal/interface/cli"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(clipres.ExitCode(err))
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "scheduler",
		Usage: "generate and query the medical rotation schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "today", Usage: "query date `YYYY-MM-DD` (overrides TODAY)"},
			&cli.StringFlag{Name: "roster", Usage: "roster source: csv, http, postgres or synthetic (overrides ROSTER_SOURCE)"},
			&cli.StringFlag{Name: "roster-file", Usage: "roster CSV `PATH` (overrides ROSTER_CSV_PATH)"},
			&cli.BoolFlag{Name: "force", Usage: "regenerate even when a cached schedule exists"},
		},
		DefaultCommand: "report",
		Commands: []*cli.Command{
			{
				Name:   "report",
				Usage:  "print today's dashboard",
				Action: reportAction,
			},
			{
				Name:  "export",
				Usage: "write the schedule as CSV",
				Flags: append(filterFlags(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `FILE`, - for stdout (default: dated file name)"},
				),
				Action: exportAction,
			},
			{
				Name:      "student",
				Usage:     "show one student's year",
				ArgsUsage: "ID|REGD_NO|NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "csv", Usage: "write the week-by-week CSV instead"},
				},
				Action: studentAction,
			},
			{
				Name:      "rotation",
				Usage:     "list the students on a rotation today",
				ArgsUsage: "CODE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "narrow by name or registration number"},
					&cli.BoolFlag{Name: "csv", Usage: "write the roll as CSV instead"},
				},
				Action: rotationAction,
			},
			{
				Name:      "search",
				Usage:     "find students by name or registration number",
				ArgsUsage: "QUERY",
				Action:    searchAction,
			},
			{
				Name:  "conflicts",
				Usage: "list students with overlapping rotations",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "batch", Usage: "A, B, C, D or all"},
					&cli.StringFlag{Name: "phase", Usage: "MED, SUR, OBG, OTH, COM or all"},
					&cli.BoolFlag{Name: "csv", Usage: "write CSV"},
				},
				Action: conflictsAction,
			},
			{
				Name:  "import",
				Usage: "store the loaded roster in PostgreSQL",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "include-placeholders", Usage: "store filler students too"},
				},
				Action: importAction,
			},
			{
				Name:  "migrate",
				Usage: "apply (or roll back one) database migration",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rollback", Usage: "roll back the latest migration"},
				},
				Action: migrateAction,
			},
		},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "batch", Usage: "A, B, C, D or all"},
		&cli.StringFlag{Name: "phase", Usage: "MED, SUR, OBG, OTH, COM or all"},
		&cli.StringFlag{Name: "rotation", Usage: "rotation code or all"},
		&cli.StringFlag{Name: "from", Usage: "window start `YYYY-MM-DD`"},
		&cli.StringFlag{Name: "to", Usage: "window end `YYYY-MM-DD`"},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING
// ══════════════════════════════════════════════════════════════════════════════

// open loads configuration, applies global flag overrides and wires the app.
func open(c *cli.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v := c.String("today"); v != "" {
		cfg.Academic.Today = v
	}
	if v := c.String("roster"); v != "" {
		cfg.Roster.Source = config.RosterSource(strings.ToLower(v))
	}
	if v := c.String("roster-file"); v != "" {
		cfg.Roster.CSVPath = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(c.Context, cfg, opts)
}

// withEngine wires the app, generates the schedule and hands the engine to fn.
func withEngine(c *cli.Context, fn func(e *query.Engine) error) error {
	a, err := open(c, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Generate(c.Context, c.Bool("force"))
	if err != nil {
		return err
	}
	a.Log.Info("schedule ready",
		logger.String("origin", string(res.Origin)),
		logger.String("roster_source", res.Report.Source),
		logger.Bool("fell_back", res.Report.FellBack),
		logger.Int("placeholders", res.Report.PlaceholderTotal()),
		logger.Int("conflicts", res.Conflicts),
	)
	return fn(res.Engine)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIONS
// ══════════════════════════════════════════════════════════════════════════════

func reportAction(c *cli.Context) error {
	return withEngine(c, func(e *query.Engine) error {
		return clipres.WriteReport(c.App.Writer, e)
	})
}

func exportAction(c *cli.Context) error {
	f, err := filtersFromFlags(c)
	if err != nil {
		return err
	}
	return withEngine(c, func(e *query.Engine) error {
		return writeOutput(c, c.String("out"), clipres.ScheduleFileName(e.Today()), func(w io.Writer) error {
			return clipres.WriteScheduleCSV(w, e.ExportRows(f))
		})
	})
}

func studentAction(c *cli.Context) error {
	arg := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if arg == "" {
		return cli.Exit("student: an ID, registration number or name is required", clipres.ExitInvalid)
	}
	return withEngine(c, func(e *query.Engine) error {
		s, err := resolveStudent(e, arg)
		if err != nil {
			return err
		}
		if !c.Bool("csv") {
			return clipres.WriteStudentCard(c.App.Writer, e, s.ID)
		}
		return writeOutput(c, "", clipres.StudentFileName(s.RegdNo, s.ID), func(w io.Writer) error {
			return clipres.WriteStudentCSV(w, e.StudentExport(s.ID))
		})
	})
}

func rotationAction(c *cli.Context) error {
	code := shared.RotationCode(strings.ToUpper(c.Args().First()))
	if code == "" {
		return cli.Exit("rotation: a rotation code is required", clipres.ExitInvalid)
	}
	return withEngine(c, func(e *query.Engine) error {
		if !c.Bool("csv") {
			return clipres.WriteRotationRoll(c.App.Writer, e, code, c.String("search"))
		}
		return writeOutput(c, "", clipres.RotationFileName(code, e.Today()), func(w io.Writer) error {
			return clipres.WriteScheduleCSV(w, e.RotationExport(code))
		})
	})
}

func searchAction(c *cli.Context) error {
	q := strings.Join(c.Args().Slice(), " ")
	return withEngine(c, func(e *query.Engine) error {
		for _, s := range e.SearchStudents(q) {
			fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%s\n", s.ID, s.Batch, s.RegdNo, s.Name)
		}
		return nil
	})
}

func conflictsAction(c *cli.Context) error {
	f := query.ConflictFilter{Batch: strings.ToUpper(c.String("batch")), Phase: strings.ToUpper(c.String("phase"))}
	return withEngine(c, func(e *query.Engine) error {
		conflicts := e.Conflicts(f)
		if c.Bool("csv") {
			return clipres.WriteConflictsCSV(c.App.Writer, conflicts)
		}
		if len(conflicts) == 0 {
			fmt.Fprintln(c.App.Writer, "No scheduling conflicts.")
			return nil
		}
		for _, cf := range conflicts {
			fmt.Fprintf(c.App.Writer, "%s %s: %s overlaps %s, %s to %s (%d days)\n",
				cf.StudentID, cf.StudentName, cf.RotationA, cf.RotationB, cf.StartDate, cf.EndDate, cf.DaysOverlap)
		}
		return cli.Exit(fmt.Sprintf("%d conflicts", len(conflicts)), clipres.ExitConflicts)
	})
}

func importAction(c *cli.Context) error {
	a, err := open(c, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Importer == nil {
		return cli.Exit("import: DATABASE_URL is not configured", clipres.ExitInvalid)
	}
	if a.Config.Roster.Source == config.RosterSourcePostgres {
		return cli.Exit("import: the roster source is already postgres", clipres.ExitInvalid)
	}

	r, report, err := a.Loader.Load(c.Context)
	if err != nil {
		return err
	}
	if report.FellBack {
		return fmt.Errorf("import: roster source %s failed, refusing to store a synthetic roster: %w", a.Config.Roster.Source, report.Cause)
	}
	res, err := a.Importer.Handle(c.Context, command.ImportRosterCommand{
		Roster:              r,
		IncludePlaceholders: c.Bool("include-placeholders"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "stored %d students (%d placeholders in roster)\n", res.Stored, res.Placeholders)
	return nil
}

func migrateAction(c *cli.Context) error {
	a, err := open(c, app.Options{SkipMigrations: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.DB == nil {
		return cli.Exit("migrate: DATABASE_URL is not configured", clipres.ExitInvalid)
	}

	m := postgres.NewMigrator(a.DB)
	if c.Bool("rollback") {
		return m.Rollback(c.Context)
	}
	return m.Migrate(c.Context)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func filtersFromFlags(c *cli.Context) (query.Filters, error) {
	f := query.Filters{
		Batch:    strings.ToUpper(c.String("batch")),
		Phase:    strings.ToUpper(c.String("phase")),
		Rotation: strings.ToUpper(c.String("rotation")),
	}
	for _, d := range []struct {
		flag string
		dst  *time.Time
	}{{"from", &f.StartDate}, {"to", &f.EndDate}} {
		if v := c.String(d.flag); v != "" {
			t, err := timeutil.ParseDate(v)
			if err != nil {
				return f, cli.Exit(fmt.Sprintf("--%s: %v", d.flag, err), clipres.ExitInvalid)
			}
			*d.dst = t
		}
	}
	return f, nil
}

// resolveStudent accepts a student ID, an exact registration number, or a
// search that matches exactly one student.
func resolveStudent(e *query.Engine, arg string) (student.Student, error) {
	if s, ok := e.Student(strings.ToUpper(arg)); ok {
		return s, nil
	}
	matches := e.SearchStudents(arg)
	for _, s := range matches {
		if strings.EqualFold(s.RegdNo, arg) {
			return s, nil
		}
	}
	switch len(matches) {
	case 0:
		return student.Student{}, shared.ErrStudentNotFound.Wrap(fmt.Errorf("%q", arg))
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, s := range matches {
		names[i] = s.ID + " " + s.Name
	}
	return student.Student{}, cli.Exit(fmt.Sprintf("%q matches several students: %s", arg, strings.Join(names, ", ")), clipres.ExitInvalid)
}

// writeOutput writes to out, stdout for "-", or the default file name in the
// working directory when out is empty.
func writeOutput(c *cli.Context, out, defaultName string, render func(io.Writer) error) error {
	if out == "-" {
		return render(c.App.Writer)
	}
	if out == "" {
		out = defaultName
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return errors.Join(err, os.Remove(out))
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "wrote %s\n", out)
	return nil
}
