package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/heatboard/internal/config"
	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/heatmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	configPath := filepath.Join(tempDir, "heatboard.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
interval = 5
history = 20
mode = "global"
log_scale = false
strict = true
source = "sqlite"
source_path = "/path/to/samples.db"
output = "log"
log_level = "debug"
metrics_addr = ":9102"
record_path = "/var/lib/heatboard/capture.db"
`)
	t.Setenv("HEATBOARD_CONFIG", configPath)

	cfg, err := config.LoadArgs(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Interval, "Expected Interval 5")
	assert.Equal(t, 20, cfg.History, "Expected History 20")
	assert.Equal(t, "global", cfg.Mode, "Expected Mode global")
	assert.Equal(t, heatmap.ModeGlobal, cfg.HeatmapMode())
	assert.False(t, cfg.LogScale, "Expected LogScale false")
	assert.True(t, cfg.Strict, "Expected Strict true")
	assert.Equal(t, "sqlite", cfg.Source)
	assert.Equal(t, "/path/to/samples.db", cfg.SourcePath)
	assert.Equal(t, "log", cfg.Output)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
	assert.Equal(t, "/var/lib/heatboard/capture.db", cfg.RecordPath)
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("HEATBOARD_CONFIG", "")

	cfg, err := config.LoadArgs(nil)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultInterval, cfg.Interval)
	assert.Equal(t, heatmap.DefaultHistory, cfg.History)
	assert.Equal(t, "local", cfg.Mode)
	assert.True(t, cfg.LogScale)
	assert.False(t, cfg.Strict)
	assert.Equal(t, config.DefaultSource, cfg.Source)
	assert.Equal(t, config.DefaultOutput, cfg.Output)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Empty(t, cfg.RecordPath)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("HEATBOARD_CONFIG", configPath)

	_, err := config.LoadArgs(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("HEATBOARD_CONFIG", "")

	_, err := config.LoadArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")})
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestFlagsOverrideFile(t *testing.T) {
	configPath := writeConfig(t, `
mode = "global"
history = 20
`)
	t.Setenv("HEATBOARD_CONFIG", configPath)

	cfg, err := config.LoadArgs([]string{"--mode", "group", "--log-level", "debug", "--log-scale=false"})
	require.NoError(t, err)

	assert.Equal(t, "group", cfg.Mode, "Expected Mode to be set by flag")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
	assert.False(t, cfg.LogScale)
	assert.Equal(t, 20, cfg.History, "Expected History from file")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	configPath := writeConfig(t, `
history = 20
`)
	t.Setenv("HEATBOARD_CONFIG", configPath)
	t.Setenv("HEATBOARD_HISTORY", "9")

	cfg, err := config.LoadArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.History)
}

func TestValidation(t *testing.T) {
	t.Setenv("HEATBOARD_CONFIG", "")

	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{"invalid log level", []string{"--log-level", "loud"}, errors.ErrInvalidLogLevel},
		{"zero interval", []string{"--interval", "0"}, errors.ErrInvalidInterval},
		{"negative history", []string{"--history", "-1"}, errors.ErrInvalidConfig},
		{"unknown mode", []string{"--mode", "median"}, errors.ErrInvalidConfig},
		{"unknown source", []string{"--source", "kafka"}, errors.ErrInvalidConfig},
		{"sqlite without path", []string{"--source", "sqlite"}, errors.ErrInvalidConfig},
		{"record over replayed file", []string{"--source", "sqlite", "--source-path", "a.db", "--record-path", "a.db"}, errors.ErrInvalidConfig},
		{"unknown output", []string{"--output", "png"}, errors.ErrInvalidConfig},
		{"unknown flag", []string{"--colour"}, errors.ErrBindFlags},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadArgs(tt.args)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}
