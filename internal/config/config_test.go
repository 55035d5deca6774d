package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 16666666*time.Nanosecond, cfg.Scheduler.FixedStep)
	assert.Equal(t, 5, cfg.Scheduler.MaxLagTicks)
	assert.Equal(t, 2*time.Millisecond, cfg.Scheduler.SpinThreshold)
	assert.Equal(t, 16666666*time.Nanosecond, cfg.Frame.Interval)
	assert.Empty(t, cfg.Journal.Path)
	assert.False(t, cfg.Debug.Assertions)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "lockstep.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.Scheduler.FixedStep)
	assert.Equal(t, 3, cfg.Scheduler.MaxLagTicks)
	assert.Equal(t, 2*time.Millisecond, cfg.Scheduler.SpinThreshold, "unset keys keep defaults")
	assert.Equal(t, 20*time.Millisecond, cfg.Frame.Interval)
	assert.Equal(t, "run.db", cfg.Journal.Path)
	assert.True(t, cfg.Debug.Assertions)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("LOCKSTEP_SCHEDULER_FIXED_STEP", "5ms")
	t.Setenv("LOCKSTEP_SCHEDULER_MAX_LAG_TICKS", "9")
	t.Setenv("LOCKSTEP_LOG_FORMAT", "json")

	cfg, err := Load(filepath.Join("testdata", "lockstep.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Millisecond, cfg.Scheduler.FixedStep)
	assert.Equal(t, 9, cfg.Scheduler.MaxLagTicks)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "run.db", cfg.Journal.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  fixed_step: 0s\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.fixed_step")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "scheduler.fixed_step", envKey("LOCKSTEP_SCHEDULER_FIXED_STEP"))
	assert.Equal(t, "debug.assertions", envKey("LOCKSTEP_DEBUG_ASSERTIONS"))
	assert.Empty(t, envKey("LOCKSTEP_NOSECTION"))
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Log.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "log.format")

	cfg.Log.Format = "text"
	cfg.Log.Level = "loud"
	assert.ErrorContains(t, cfg.Validate(), "log.level")
}
