package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"codeberg.org/mutker/heatboard/internal/config"
	"codeberg.org/mutker/heatboard/internal/heatmap"
	"codeberg.org/mutker/heatboard/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleView(t *testing.T) heatmap.View {
	t.Helper()

	b := heatmap.NewBoard(heatmap.WithLogScale(false))
	for _, v := range []float64{5, -10, 3, 8} {
		require.NoError(t, b.Add("load", "w", v))
	}
	require.NoError(t, b.Update())

	return b.View()
}

func TestEmitJSONLine(t *testing.T) {
	var buf bytes.Buffer
	e := newEmitter(config.OutputJSON, &buf, logger.Nop())

	require.NoError(t, e.Emit(sampleView(t)))

	var decoded struct {
		Mode   string `json:"mode"`
		Groups []struct {
			Name string `json:"name"`
			Rows []struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
				Cells []struct {
					Actual   float64 `json:"actual"`
					Relative float64 `json:"relative"`
				} `json:"cells"`
			} `json:"rows"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "local", decoded.Mode)
	require.Len(t, decoded.Groups, 1)
	row := decoded.Groups[0].Rows[0]
	assert.Equal(t, "w", row.Name)
	assert.Equal(t, 4, row.Count)
	assert.Equal(t, 8.0, row.Cells[0].Actual)
	assert.InDelta(t, 0.8, row.Cells[0].Relative, 1e-12)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestEmitLogWritesRows(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.InfoLevel, true)
	t.Cleanup(func() { logger.InitWithWriter(&bytes.Buffer{}, logger.InfoLevel, true) })

	e := newEmitter(config.OutputLog, &bytes.Buffer{}, logger.Default().With("view"))
	require.NoError(t, e.Emit(sampleView(t)))

	out := buf.String()
	assert.Contains(t, out, "group=load")
	assert.Contains(t, out, "series=w")
	assert.Contains(t, out, "count=4")
}

func TestEmitNoneWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	e := newEmitter(config.OutputNone, &buf, logger.Nop())

	require.NoError(t, e.Emit(sampleView(t)))
	assert.Zero(t, buf.Len())
}
