package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// No application.yaml in a temp working dir: defaults only
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "http://localhost:3000", cfg.Remote.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, time.Second, cfg.Tracking.Interval)
	assert.Equal(t, 30*time.Second, cfg.Tracking.IdleThreshold)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 3, cfg.Sync.MaxRetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, 60*time.Second, cfg.Capture.Interval)
	assert.Equal(t, 60, cfg.Capture.JPEGQuality)
	assert.Equal(t, 0.5, cfg.Capture.Scale)
	assert.Equal(t, 8743, cfg.API.Port)
}

func TestLoadReadsConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	yaml := `
log:
  level: debug
remote:
  base_url: https://portal.example.test
sync:
  interval: 10s
  max_retry_attempts: 5
`
	require.NoError(t, os.WriteFile("application.yaml", []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://portal.example.test", cfg.Remote.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 5, cfg.Sync.MaxRetryAttempts)
	// Untouched keys keep defaults
	assert.Equal(t, 5*time.Second, cfg.Sync.RetryDelay)
	assert.Equal(t, 8743, cfg.API.Port)
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	t.Setenv("STAFFMON_LOG_LEVEL", "warn")
	t.Setenv("STAFFMON_API_PORT", "9100")
	t.Setenv("STAFFMON_TRACKING_IDLE_THRESHOLD", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 9100, cfg.API.Port)
	assert.Equal(t, 45*time.Second, cfg.Tracking.IdleThreshold)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(wd)

	require.NoError(t, os.WriteFile("application.yaml", []byte("log: [unterminated"), 0644))

	_, err = Load()
	assert.Error(t, err)
}
