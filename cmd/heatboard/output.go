package main

import (
	"encoding/json"
	"io"

	"codeberg.org/mutker/heatboard/internal/config"
	"codeberg.org/mutker/heatboard/internal/heatmap"
	"codeberg.org/mutker/heatboard/internal/logger"
)

// emitter writes each updated view either as one JSON line or as a log
// line per row.
type emitter struct {
	kind config.OutputKind
	enc  *json.Encoder
	log  logger.Logger
}

func newEmitter(kind config.OutputKind, w io.Writer, log logger.Logger) *emitter {
	return &emitter{kind: kind, enc: json.NewEncoder(w), log: log}
}

func (e *emitter) Emit(view heatmap.View) error {
	switch e.kind {
	case config.OutputJSON:
		return e.enc.Encode(view)
	case config.OutputLog:
		e.logView(view)
	}

	return nil
}

func (e *emitter) logView(view heatmap.View) {
	for _, g := range view.Groups {
		for _, row := range g.Rows {
			ev := e.log.Info().
				Str("group", g.Name).
				Str("series", row.Name).
				Int("count", row.Count).
				Float64("local_min", row.LocalMin).
				Float64("local_max", row.LocalMax)
			if len(row.Cells) > 0 {
				latest := row.Cells[0]
				ev = ev.Float64("latest", latest.Actual).Float64("relative", latest.Clamped())
			}
			ev.Msg("")
		}
	}
}
