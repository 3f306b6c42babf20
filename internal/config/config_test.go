package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, DefaultDataPath, cfg.Data.Path)
	assert.Equal(t, DefaultCancelSheet, cfg.Data.CancelSheet)
	assert.Equal(t, DefaultPatientsSeenSheet, cfg.Data.PatientsSeenSheet)
	assert.Equal(t, 10*time.Minute, cfg.Data.CacheTTL)
	assert.Equal(t, 3, cfg.Data.BreakerFailures)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "dashboard", cfg.Monitoring.MetricsPrefix)
}

func TestLoadConfigDataPathFromEnvironment(t *testing.T) {
	t.Setenv("DASHBOARD_DATA_PATH", "/data/clinic.xlsx")
	t.Setenv("DASHBOARD_CACHE_TTL", "90s")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "/data/clinic.xlsx", cfg.Data.Path)
	assert.Equal(t, 90*time.Second, cfg.Data.CacheTTL)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9090
  request_timeout: 10s
data:
  path: ./fixtures/report.xlsx
  cache_ttl: 1m
rate_limit:
  enabled: false
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), content, 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "./fixtures/report.xlsx", cfg.Data.Path)
	assert.Equal(t, time.Minute, cfg.Data.CacheTTL)
	assert.Equal(t, DefaultCancelSheet, cfg.Data.CancelSheet)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("data:\n  path: from-file.xlsx\n"), 0o600))
	t.Setenv("DASHBOARD_DATA_PATH", "from-env.xlsx")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env.xlsx", cfg.Data.Path)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server:\n  port: 70000\n"), 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
