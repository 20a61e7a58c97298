package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gimsr/rotation-scheduler/internal/application/query"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY REPORT JOB
// ══════════════════════════════════════════════════════════════════════════════

// ErrNoSchedule is returned when no schedule has been published yet.
var ErrNoSchedule = errors.New("no schedule published yet")

// RenderFunc writes one report for an engine.
type RenderFunc func(w io.Writer, e *query.Engine) error

// DailyReportJob writes the day's rotation dashboard and the CSV export of
// the full schedule into a directory, one pair of files per day.
type DailyReportJob struct {
	current *Current
	dir     string
	report  RenderFunc
	export  RenderFunc
	log     *logger.Logger
}

// NewDailyReportJob creates a new report job. export may be nil.
func NewDailyReportJob(current *Current, dir string, report, export RenderFunc, log *logger.Logger) *DailyReportJob {
	if log == nil {
		log = logger.Nop()
	}
	return &DailyReportJob{
		current: current,
		dir:     dir,
		report:  report,
		export:  export,
		log:     log.With(logger.Component("daily_report")),
	}
}

// Name returns the job name.
func (j *DailyReportJob) Name() string { return "daily_report" }

// Description returns a human-readable description of the job.
func (j *DailyReportJob) Description() string {
	return "Writes the daily rotation dashboard and schedule export"
}

// Run executes the job.
func (j *DailyReportJob) Run(ctx context.Context) error {
	e := j.current.Engine()
	if e == nil {
		return fmt.Errorf("daily_report: %w", ErrNoSchedule)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("daily_report: create directory: %w", err)
	}

	day := timeutil.FormatDateStr(e.Today())
	written := []string{}

	path := filepath.Join(j.dir, "report-"+day+".txt")
	if err := writeFile(path, e, j.report); err != nil {
		return fmt.Errorf("daily_report: %w", err)
	}
	written = append(written, path)

	if j.export != nil {
		path = filepath.Join(j.dir, "medical_rotation_schedule_"+day+".csv")
		if err := writeFile(path, e, j.export); err != nil {
			return fmt.Errorf("daily_report: %w", err)
		}
		written = append(written, path)
	}

	j.log.Info("report written", logger.Date("day", e.Today()), logger.Any("files", written))
	return nil
}

// writeFile renders into a temp file and renames it into place.
func writeFile(path string, e *query.Engine, render RenderFunc) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := render(tmp, e); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
