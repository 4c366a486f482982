package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrefixedOverridesBare(t *testing.T) {
	t.Setenv("WORKERS", "2")
	t.Setenv("PLANNER_WORKERS", "8")
	t.Setenv("PLANNER_TIMEZONE", "Europe/Berlin")
	t.Setenv("PLANNER_ROLLOVER_SCHEDULE", "SUN 23:30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "SUN 23:30", cfg.RolloverSchedule)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadBareFallback(t *testing.T) {
	t.Setenv("PLANNER_WORKERS", "")
	require.NoError(t, os.Unsetenv("PLANNER_WORKERS"))
	t.Setenv("WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("workers", func(t *testing.T) {
		t.Setenv("PLANNER_WORKERS", "0")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("PLANNER_WORKERS", "1")
		t.Setenv("PLANNER_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestRequireTelegram(t *testing.T) {
	assert.Error(t, (&Config{}).RequireTelegram())
	assert.NoError(t, (&Config{TelegramToken: "123:abc"}).RequireTelegram())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "WARN"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "chatty"}).SlogLevel())
	var nilCfg *Config
	assert.Equal(t, slog.LevelInfo, nilCfg.SlogLevel())
}
