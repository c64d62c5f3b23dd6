package heatmap

import "codeberg.org/mutker/heatboard/internal/logger"

// Observer receives ingest and update events from a Board.
type Observer interface {
	ObserveAdd(group, series string, err error)
	ObserveUpdate(stats UpdateStats)
}

// UpdateStats summarises one Board.Update pass.
type UpdateStats struct {
	Groups     int
	Series     int
	Cells      int
	Violations int
	Failed     bool
	Seconds    float64
}

type settings struct {
	history  int
	mode     Mode
	logScale bool
	strict   bool
	log      logger.Logger
	observer Observer
}

func defaultSettings() settings {
	return settings{
		history:  DefaultHistory,
		mode:     DefaultMode,
		logScale: DefaultLogScale,
		log:      logger.Nop(),
	}
}

// Option configures a Board or a standalone Group.
type Option func(*settings)

// WithHistory sets the initial history limit. Negative values are ignored.
func WithHistory(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.history = n
		}
	}
}

func WithMode(m Mode) Option {
	return func(s *settings) { s.mode = m }
}

func WithLogScale(on bool) Option {
	return func(s *settings) { s.logScale = on }
}

// WithStrict makes Update return scale violations as errors. Violations are
// logged either way.
func WithStrict(on bool) Option {
	return func(s *settings) { s.strict = on }
}

func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	return s
}
