package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/monitoring"
	"github.com/sells-group/intake-cli/internal/store"
	"github.com/sells-group/intake-cli/internal/submission"
)

// testConfig loads the default configuration, ignoring any user config file.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	c, err := config.Load()
	require.NoError(t, err)
	c.Retry.MaxAttempts = 1
	return c
}

// testEnv builds an environment over a fresh SQLite store with metrics.
func testEnv(t *testing.T) *appEnv {
	t.Helper()
	c := testConfig(t)
	cfg = c

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(t.Context()))
	t.Cleanup(func() { _ = st.Close() })

	env, err := newEnv(c, st, submission.Overrides{})
	require.NoError(t, err)
	env.Metrics = monitoring.NewMetrics()
	return env
}

func vs(v any, score float64) map[string]any {
	return map[string]any{"value": v, "score": score}
}

// sampleDoc is a small submission rooted at Common.
func sampleDoc() map[string]any {
	return map[string]any{
		"Common": map[string]any{
			"Firmographics": map[string]any{
				"company_name": vs("Acme Widgets LLC", 95),
				"city":         vs("Chicago", 90),
				"state":        vs("IL", 90),
			},
		},
	}
}

// propertyDoc is a submission with one valued property.
func propertyDoc() map[string]any {
	return map[string]any{"properties": []any{
		map[string]any{
			"address":           "100 Main St, Chicago, IL 60601",
			"sqft":              10000,
			"building_value":    1250000,
			"construction_type": "Frame",
			"year_built":        2015,
		},
	}}
}

func emptyOverrides() submission.Overrides { return submission.Overrides{} }
