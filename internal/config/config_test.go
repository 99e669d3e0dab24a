package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, 5, cfg.Scheduler.SlackMinutes)
	assert.Equal(t, 120, cfg.Scheduler.LockTTLSeconds)
	assert.Equal(t, 24, cfg.Scheduler.DedupeLookbackHours)
	assert.Equal(t, 30, cfg.Feed.DaysBack)
	assert.Equal(t, 90, cfg.Feed.DaysForward)
	assert.True(t, cfg.Frontend.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	content := `
db:
  host: db.internal
  port: 5433
scheduler:
  intervalminutes: 1
feed:
  daysforward: 365
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 1, cfg.Scheduler.IntervalMinutes)
	assert.Equal(t, 365, cfg.Feed.DaysForward)
	// Untouched values keep their defaults.
	assert.Equal(t, 5, cfg.Scheduler.SlackMinutes)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db:\n  host: from-file\n"), 0o644))

	t.Setenv("VARSLA_DB_HOST", "from-env")
	t.Setenv("VARSLA_MAILER_SENDER", "alerts@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Host)
	assert.Equal(t, "alerts@example.com", cfg.Mailer.Sender)
}
