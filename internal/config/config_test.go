package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	dir := filepath.Join(root, ledger.DefaultStateDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ledger.ConfigFile), []byte(body), 0o644))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ledger.DefaultStateDir, cfg.Paths.StateDir)
	assert.Equal(t, ledger.DefaultActiveDir, cfg.Paths.ActiveDir)
	assert.Equal(t, ledger.DefaultRemovedDir, cfg.Paths.RemovedDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Metrics.Workers)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
paths:
  active_dir: docs/work
log:
  format: json
history:
  enabled: false
`)

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "docs/work", cfg.Paths.ActiveDir)
	assert.Equal(t, ledger.DefaultRemovedDir, cfg.Paths.RemovedDir, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.History.Enabled, "explicit false beats the default")

	layout := cfg.Layout(root)
	assert.Equal(t, filepath.Join(root, "docs", "work", "bug-001"), layout.FeaturePath("bug-001"))
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "log:\n  level: warn\nmetrics:\n  workers: 2\n")
	t.Setenv("PHASEGATE_LOG_LEVEL", "debug")
	t.Setenv("PHASEGATE_METRICS_WORKERS", "8")
	t.Setenv("PHASEGATE_TELEMETRY_ENABLED", "true")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Metrics.Workers)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown level", "log:\n  level: loud\n"},
		{"unknown format", "log:\n  format: xml\n"},
		{"zero workers", "metrics:\n  workers: 0\n"},
		{"same roots", "paths:\n  active_dir: work\n  removed_dir: work\n"},
		{"not yaml", "log: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, tt.body)
			_, err := Load(root)
			assert.Error(t, err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "paths.active_dir", envKey("PHASEGATE_PATHS_ACTIVE_DIR"))
	assert.Equal(t, "log.level", envKey("PHASEGATE_LOG_LEVEL"))
	assert.Equal(t, "debug", envKey("PHASEGATE_DEBUG"))
}
