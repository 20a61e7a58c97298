package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags holds on/off toggles for optional worker behaviour.
// Every flag can be overridden with FEATURE_<NAME>=true|false, where the
// name is upper-cased with dots replaced by underscores.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature
	now      func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// Predefined feature flag names.
const (
	FeatureJobRosterRefresh = "jobs.roster_refresh" // Periodic roster reload and regeneration
	FeatureJobDailyReport   = "jobs.daily_report"   // Daily dashboard file
	FeatureReportCSVExport  = "report.csv_export"   // Full schedule CSV next to the dashboard
	FeatureRosterImport     = "roster.import"       // Mirror loaded rosters into PostgreSQL
	FeatureReportOnRefresh  = "report.on_refresh"   // Rewrite the daily report when the schedule changes
	FeatureEventsRedis      = "events.redis"        // Share schedule events between workers over Redis
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
		now:      time.Now,
	}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	for _, f := range []Feature{
		{Name: FeatureJobRosterRefresh, Description: "Reload the roster and regenerate the schedule on a schedule", Enabled: true},
		{Name: FeatureJobDailyReport, Description: "Write the daily rotation dashboard", Enabled: true},
		{Name: FeatureReportCSVExport, Description: "Write the full schedule CSV with the daily report", Enabled: true},
		{Name: FeatureRosterImport, Description: "Store every freshly loaded roster in PostgreSQL", Enabled: false},
		{Name: FeatureReportOnRefresh, Description: "Rewrite the daily report as soon as a new schedule is published", Enabled: true},
		{Name: FeatureEventsRedis, Description: "Publish schedule events on Redis for other workers", Enabled: false},
	} {
		f := f
		ff.features[f.Name] = &f
	}
}

func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "jobs.daily_report" -> "FEATURE_JOBS_DAILY_REPORT"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled reports whether a feature is on right now. Unknown features are off.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}
	return true
}

// SetWindow limits a feature to [from, until]. Nil bounds are open.
func (ff *FeatureFlags) SetWindow(featureName string, from, until *time.Time) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.EnabledFrom, feature.EnabledUntil = from, until
	return nil
}

// EnableFeature turns a feature on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.set(featureName, true)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.set(featureName, false)
}

func (ff *FeatureFlags) set(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns copies of all features sorted by name.
func (ff *FeatureFlags) GetAllFeatures() []Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make([]Feature, 0, len(ff.features))
	for _, v := range ff.features {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// --- Errors ---

// ErrFeatureNotFound is returned for unknown feature names.
var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
