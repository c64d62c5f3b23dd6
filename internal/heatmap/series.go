package heatmap

import (
	"math"

	"github.com/hashicorp/go-multierror"
)

const (
	DefaultHistory  = 50
	DefaultMode     = ModeLocal
	DefaultLogScale = true
)

// Series is one heat-map row: a bounded rolling window of observations for
// a single metric. The window holds at most History cells; the oldest cell
// is evicted when a new one would exceed it.
type Series struct {
	name     string
	history  int
	mode     Mode
	logScale bool

	// cells is ordered oldest first; accessors expose it newest first.
	cells   []Cell
	visible []Cell
	count   int

	localMin, localMax   float64
	groupMin, groupMax   float64
	globalMin, globalMax float64

	rescans int
}

// NewSeries returns an empty series using the package defaults.
func NewSeries(name string) *Series {
	return newSeries(name, defaultSettings())
}

func newSeries(name string, s settings) *Series {
	return &Series{
		name:     name,
		history:  s.history,
		mode:     s.mode,
		logScale: s.logScale,
	}
}

func (s *Series) Name() string { return s.name }

func (s *Series) History() int { return s.history }

func (s *Series) Mode() Mode { return s.mode }

func (s *Series) LogScale() bool { return s.logScale }

// Len returns the number of retained cells.
func (s *Series) Len() int { return len(s.cells) }

// Count returns the number of observations ever added, including evicted ones.
func (s *Series) Count() int { return s.count }

// LocalExtrema returns the minimum and maximum of the retained cells, or
// zeros when the series is empty.
func (s *Series) LocalExtrema() (lo, hi float64) { return s.localMin, s.localMax }

// GroupExtrema returns the extrema last supplied by the owning group.
func (s *Series) GroupExtrema() (lo, hi float64) { return s.groupMin, s.groupMax }

// GlobalExtrema returns the extrema last supplied by the board.
func (s *Series) GlobalExtrema() (lo, hi float64) { return s.globalMin, s.globalMax }

// SetGlobalExtrema stores the board-wide extrema for this series' name.
func (s *Series) SetGlobalExtrema(lo, hi float64) {
	s.globalMin, s.globalMax = lo, hi
}

func (s *Series) setGroupExtrema(lo, hi float64) {
	s.groupMin, s.groupMax = lo, hi
}

// Values returns the retained observations, newest first.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.cells))
	for i := range s.cells {
		out[len(s.cells)-1-i] = s.cells[i].Actual
	}

	return out
}

// VisibleCells returns the cells computed by the last Update, newest first.
// The returned slice must not be modified.
func (s *Series) VisibleCells() []Cell { return s.visible }

// Add records a new observation. NaN and infinities are rejected because
// they have no place in an ordered extremum.
func (s *Series) Add(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errFactory.WithData(ErrInvalidValue, Observation{Series: s.name, Value: value})
	}

	s.cells = append(s.cells, Cell{Actual: value})
	s.count++

	var removed float64
	evicted := false
	if len(s.cells) > s.history {
		removed = s.cells[0].Actual
		s.cells = s.cells[1:]
		evicted = true
	}

	s.trackExtrema(value, removed, evicted)

	return nil
}

// trackExtrema updates the local extrema after an insertion. A full scan of
// the window happens only when the evicted value was itself an extremum.
func (s *Series) trackExtrema(value, removed float64, evicted bool) {
	switch len(s.cells) {
	case 0:
		s.localMin, s.localMax = 0, 0
		return
	case 1:
		only := s.cells[0].Actual
		s.localMin, s.localMax = only, only
		return
	}

	if evicted && removed == s.localMax {
		s.localMax = s.scanMax()
	} else if value > s.localMax {
		s.localMax = value
	}

	if evicted && removed == s.localMin {
		s.localMin = s.scanMin()
	} else if value < s.localMin {
		s.localMin = value
	}
}

func (s *Series) scanMax() float64 {
	s.rescans++
	hi := math.Inf(-1)
	for _, c := range s.cells {
		hi = math.Max(hi, c.Actual)
	}

	return hi
}

func (s *Series) scanMin() float64 {
	s.rescans++
	lo := math.Inf(1)
	for _, c := range s.cells {
		lo = math.Min(lo, c.Actual)
	}

	return lo
}

func (s *Series) recomputeExtrema() {
	if len(s.cells) == 0 {
		s.localMin, s.localMax = 0, 0
		return
	}
	s.localMin, s.localMax = s.scanMin(), s.scanMax()
}

// SetHistory changes the window size. Shrinking drops the oldest cells
// immediately and recomputes the local extrema; visible cells stay stale
// until the next Update.
func (s *Series) SetHistory(n int) error {
	if n < 0 {
		return errFactory.WithData(ErrInvalidHistory, n)
	}

	s.history = n
	if excess := len(s.cells) - n; excess > 0 {
		s.cells = append([]Cell(nil), s.cells[excess:]...)
		s.recomputeExtrema()
	}

	return nil
}

func (s *Series) SetMode(m Mode) { s.mode = m }

func (s *Series) SetLogScale(on bool) { s.logScale = on }

// Update recomputes the visible window and every visible cell's Relative
// value. An unsupported mode aborts the update and leaves the previous
// visible cells in place. Scale violations do not abort; the offending
// cells keep their unclamped value and every violation is returned.
func (s *Series) Update() error {
	if !s.mode.Valid() {
		return errFactory.WithData(ErrUnsupportedMode, s.mode)
	}

	n := min(len(s.cells), s.history)
	visible := make([]Cell, 0, n)

	var errs *multierror.Error
	for i := len(s.cells) - 1; i >= len(s.cells)-n; i-- {
		scaled, err := s.Scale(s.cells[i].Actual)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		s.cells[i].Relative = scaled
		visible = append(visible, s.cells[i])
	}
	s.visible = visible

	return errs.ErrorOrNil()
}

// Scale maps value into [-1, 1] using the extrema selected by the series'
// mode. When log scaling is on, both value and the divisor pass through
// ln(1+|x|) and value keeps its sign.
func (s *Series) Scale(value float64) (float64, error) {
	raw := value

	var lo, hi float64
	switch s.mode {
	case ModeLocal:
		lo, hi = s.localMin, s.localMax
	case ModeGroup:
		lo, hi = s.groupMin, s.groupMax
	case ModeGlobal:
		lo, hi = s.globalMin, s.globalMax
	default:
		return 0, errFactory.WithData(ErrUnsupportedMode, s.mode)
	}

	absMax := math.Max(math.Abs(hi), math.Abs(lo))
	if s.logScale {
		absMax = logCompress(absMax)
		value = math.Copysign(logCompress(value), value)
	}

	scaled := 0.0
	if absMax > 0 {
		scaled = value / absMax
	}

	if math.Abs(scaled) > 1 {
		return scaled, errFactory.WithData(ErrScaleInvariant, Violation{
			Series: s.name,
			Mode:   s.mode,
			Value:  raw,
			Scaled: scaled,
		})
	}

	return scaled, nil
}

func logCompress(x float64) float64 {
	return math.Log1p(math.Abs(x))
}
