package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/config"
	"github.com/gimsr/rotation-scheduler/internal/application/command"
	"github.com/gimsr/rotation-scheduler/pkg/timeutil"
)

func baseConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "rotation-scheduler-test"},
		Academic: config.AcademicConfig{Today: "2025-04-01"},
		Roster: config.RosterConfig{
			Source:              config.RosterSourceSynthetic,
			MaxAttempts:         1,
			Seed:                42,
			FallbackToSynthetic: true,
		},
		Redis:         config.RedisConfig{Disabled: true},
		Observability: config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"},
	}
}

func TestNew_SyntheticWithoutBackends(t *testing.T) {
	var logs bytes.Buffer
	a, err := New(context.Background(), baseConfig(), Options{Output: &logs})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Cache)
	assert.Nil(t, a.Importer)
	assert.True(t, a.Clock.IsPinned())
	assert.Equal(t, timeutil.Date(2025, 4, 1), a.Clock.Today())

	res, err := a.Generate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, command.OriginGenerated, res.Origin)
	assert.Equal(t, "synthetic", res.Report.Source)
	assert.Len(t, res.Engine.Roster(), 136)
	assert.Equal(t, 0, res.Conflicts)
}

func TestNew_SeedIsDeterministic(t *testing.T) {
	a, err := New(context.Background(), baseConfig(), Options{Output: &bytes.Buffer{}})
	require.NoError(t, err)
	b, err := New(context.Background(), baseConfig(), Options{Output: &bytes.Buffer{}})
	require.NoError(t, err)

	ra, err := a.Generate(context.Background(), false)
	require.NoError(t, err)
	rb, err := b.Generate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, ra.Fingerprint, rb.Fingerprint)
}

func TestNew_YearStartOverride(t *testing.T) {
	cfg := baseConfig()
	cfg.Academic.YearStart = "2026-04-01"
	a, err := New(context.Background(), cfg, Options{Output: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, timeutil.Date(2026, 4, 1), a.Catalog.YearStart())
}

func TestNew_CSVFallsBackToSynthetic(t *testing.T) {
	cfg := baseConfig()
	cfg.Roster.Source = config.RosterSourceCSV
	cfg.Roster.CSVPath = filepath.Join(t.TempDir(), "missing.csv")

	a, err := New(context.Background(), cfg, Options{Output: &bytes.Buffer{}})
	require.NoError(t, err)

	res, err := a.Generate(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, res.Report.FellBack)
	assert.Len(t, res.Engine.Roster(), 136)
}

func TestNew_CSVRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.csv")
	csv := "Regd. No.,Name of the student,Batch\n1001,Asha Rao,A\n1002,Ravi Kumar,B\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	cfg := baseConfig()
	cfg.Roster.Source = config.RosterSourceCSV
	cfg.Roster.CSVPath = path
	cfg.Roster.FallbackToSynthetic = false

	a, err := New(context.Background(), cfg, Options{Output: &bytes.Buffer{}})
	require.NoError(t, err)

	res, err := a.Generate(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, res.Report.FellBack)
	assert.Equal(t, 2, res.Engine.ActualStudentCount())
	s, ok := res.Engine.Student("A01")
	require.True(t, ok)
	assert.Equal(t, "Asha Rao", s.Name)
}

func TestNew_PostgresSourceNeedsDatabase(t *testing.T) {
	cfg := baseConfig()
	cfg.Roster.Source = config.RosterSourcePostgres

	_, err := New(context.Background(), cfg, Options{Output: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "needs DATABASE_URL")
}
