package logger_test

import (
	"bytes"
	"testing"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  logger.LogLevel
		valid bool
	}{
		{"debug", logger.DebugLevel, true},
		{"INFO", logger.InfoLevel, true},
		{"warning", logger.WarnLevel, true},
		{"warn", logger.WarnLevel, true},
		{"error", logger.ErrorLevel, true},
		{"loud", logger.InfoLevel, false},
	}

	for _, tt := range tests {
		got, ok := logger.ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.valid, ok, tt.in)
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel, true)

	logger.Default().With("board").Warn().Str("row", "w").Msg("scaled out of range")

	out := buf.String()
	assert.Contains(t, out, "scaled out of range")
	assert.Contains(t, out, "component=board")
	assert.Contains(t, out, "row=w")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel, true)

	logger.ErrorWithCode(errors.New().New(errors.ErrInvalidInterval)).Msg("bad config")

	assert.Contains(t, buf.String(), "error_code=invalid_interval")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.WarnLevel, true)
	defer logger.SetLogLevel(logger.DebugLevel)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopDiscards(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel, true)

	logger.Nop().With("x").Error().Msg("nothing")

	assert.Empty(t, buf.String())
}
