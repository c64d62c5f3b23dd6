package heatmap

// Cell is one observation and its scaled display value.
type Cell struct {
	Actual   float64 `json:"actual"`
	Relative float64 `json:"relative"`
}

// Clamped returns Relative limited to [-1, 1]. Renderers call this at the
// display boundary; the engine itself never clamps.
func (c Cell) Clamped() float64 {
	switch {
	case c.Relative > 1:
		return 1
	case c.Relative < -1:
		return -1
	default:
		return c.Relative
	}
}
