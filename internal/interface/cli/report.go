package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gimsr/rotation-scheduler/internal/application/query"
	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEXT REPORTS
// ══════════════════════════════════════════════════════════════════════════════

// WriteFullExport writes every scheduled item in the full schedule layout.
func WriteFullExport(w io.Writer, e *query.Engine) error {
	return WriteScheduleCSV(w, e.ExportRows(query.Filters{}))
}

// WriteReport writes the dashboard: calendar progress, the phase each batch
// is in, the rotations active today and the conflict count.
func WriteReport(w io.Writer, e *query.Engine) error {
	var sb strings.Builder

	today := e.Today()
	pct := e.CompletionPercentage()
	fmt.Fprintf(&sb, "Rotation schedule report for %s\n", timeutil.FormatDisplay(today))
	fmt.Fprintf(&sb, "Week %d  %s %d%%\n", e.CurrentWeek(), progressBar(pct), pct)
	fmt.Fprintf(&sb, "Students: %d enrolled, %d scheduled\n\n", e.ActualStudentCount(), len(e.Roster()))

	sb.WriteString("Batches\n")
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, b := range shared.AllBatches {
		st := e.CurrentPhaseForBatch(b)
		window := "-"
		if st.Phase != query.NoPhase {
			window = timeutil.FormatRange(st.Start, st.End)
		}
		next := "-"
		if p, ok := e.NextPhaseForBatch(b); ok {
			next = e.PhaseName(p)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\tnext: %s\n", b, e.StudentCountInBatch(b), st.PhaseName, window, next)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	active := e.ActiveRotations(query.Filters{})
	fmt.Fprintf(&sb, "\nActive rotations (%d)\n", len(active))
	tw = tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, r := range active {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%s\n", r.Code, r.Name, r.Phase, r.StudentCount, timeutil.FormatRange(r.Start, r.End))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	conflicts := e.Conflicts(query.ConflictFilter{})
	if len(conflicts) == 0 {
		sb.WriteString("\nNo scheduling conflicts.\n")
	} else {
		fmt.Fprintf(&sb, "\nConflicts (%d)\n", len(conflicts))
		for _, c := range conflicts {
			fmt.Fprintf(&sb, "  %s %s: %s overlaps %s for %d days from %s\n",
				c.StudentID, c.StudentName, c.RotationA, c.RotationB, c.DaysOverlap, c.StartDate)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteStudentCard writes a student's current and next rotation, the
// rotations already completed and the full-year week table.
func WriteStudentCard(w io.Writer, e *query.Engine, studentID string) error {
	s, ok := e.Student(studentID)
	if !ok {
		return shared.ErrStudentNotFound.Wrap(fmt.Errorf("student %q", studentID))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (batch %s, %s)\n", s.DisplayName(), s.Batch, s.ID)

	cur := e.CurrentRotation(s.ID)
	if cur.IsNone() {
		sb.WriteString("Current: none\n")
	} else {
		fmt.Fprintf(&sb, "Current: %s %s, %s\n", cur.Rotation, cur.RotationName, timeutil.FormatRange(cur.Start, cur.End))
	}
	if next, ok := e.NextRotation(s.ID); ok {
		fmt.Fprintf(&sb, "Next:    %s %s, from %s\n", next.Rotation, next.RotationName, timeutil.FormatDisplay(next.Start))
	}
	if done := e.CompletedRotations(s.ID); len(done) > 0 {
		codes := make([]string, len(done))
		for i, c := range done {
			codes[i] = string(c)
		}
		fmt.Fprintf(&sb, "Completed: %s\n", strings.Join(codes, ", "))
	}

	sb.WriteString("\n")
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, week := range e.FullSchedule(s.ID) {
		marker := ""
		if week.IsCurrentWeek {
			marker = "<"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", week.WeekNumber, week.DateRange, week.Rotation, week.Phase, marker)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteRotationRoll lists the students holding code today, optionally
// narrowed by a name or registration number search.
func WriteRotationRoll(w io.Writer, e *query.Engine, code shared.RotationCode, search string) error {
	if _, ok := e.Catalog().Rotation(code); !ok {
		return shared.ErrUnknownRotation.Wrap(fmt.Errorf("rotation %q", code))
	}

	students := e.StudentsInRotationDetailed(code, search)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s on %s: %d students\n", code, e.RotationName(code), timeutil.FormatDisplay(e.Today()), len(students))
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, s := range students {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", s.Batch, s.RegdNo, s.Name, timeutil.FormatRange(s.Start, s.End))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func progressBar(pct int) string {
	const barLength = 20
	filled := pct * barLength / 100
	filled = max(0, min(filled, barLength))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barLength-filled) + "]"
}
