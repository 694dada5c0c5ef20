package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/action"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartrecovery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "cartrecovery.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 500, cfg.Engine.BatchSize)
	assert.Equal(t, 25, cfg.Evaluate.DefaultLimit)
	assert.Equal(t, 100, cfg.Evaluate.MaxLimit)
	assert.Equal(t, "@hourly", cfg.Schedule.Automation)
	assert.Equal(t, "@daily", cfg.Schedule.Cleanup)
	assert.Equal(t, 0, cfg.Retention.Days)
	assert.Equal(t, action.DefaultCodePattern, cfg.Voucher.DefaultPattern)
	assert.Equal(t, "UTC", cfg.Stats.Timezone)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /var/lib/cartrecovery/data.db
engine:
  batch_size: 200
schedule:
  automation: "*/15 * * * *"
  metrics_addr: "127.0.0.1:9464"
retention:
  days: 90
log:
  level:
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/cartrecovery/data.db", cfg.Database.Path)
	assert.Equal(t, 200, cfg.Engine.BatchSize)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule.Automation)
	assert.Equal(t, "@daily", cfg.Schedule.Cleanup)
	assert.Equal(t, "127.0.0.1:9464", cfg.Schedule.MetricsAddr)
	assert.Equal(t, 90, cfg.Retention.Days)
	assert.Equal(t, "info", cfg.Log.Level, "empty YAML key keeps the default")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "engine:\n  batch_size: 200\n")
	t.Setenv("CARTRECOVERY_ENGINE__BATCH_SIZE", "50")
	t.Setenv("CARTRECOVERY_LOG__JSON", "true")
	t.Setenv("CARTRECOVERY_STATS__TIMEZONE", "Europe/Berlin")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Engine.BatchSize)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "Europe/Berlin", cfg.Stats.Timezone)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"bad cron", "schedule:\n  automation: \"every hour\"\n", "Automation"},
		{"bad level", "log:\n  level: loud\n", "Level"},
		{"batch size zero", "engine:\n  batch_size: 0\n", "BatchSize"},
		{"default above max", "evaluate:\n  default_limit: 200\n  max_limit: 100\n", "DefaultLimit"},
		{"bad timezone", "stats:\n  timezone: Mars/Olympus\n", "Timezone"},
		{"bad metrics addr", "schedule:\n  metrics_addr: \"not an address\"\n", "MetricsAddr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestTransformEnvKey(t *testing.T) {
	key, val := transformEnvKey("CARTRECOVERY_SCHEDULE__METRICS_ADDR", ":9464")
	assert.Equal(t, "schedule.metrics_addr", key)
	assert.Equal(t, ":9464", val)

	key, _ = transformEnvKey("CARTRECOVERY_DEBUG", "1")
	assert.Empty(t, key)
}
