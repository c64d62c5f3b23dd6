package heatmap

import (
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Board is the top-level collection of groups. It owns the cross-group
// extrema used by ModeGlobal.
type Board struct {
	settings settings

	groups []*Group
	index  map[string]*Group
}

// NewBoard returns an empty board. Without options it uses DefaultHistory,
// DefaultMode and DefaultLogScale.
func NewBoard(opts ...Option) *Board {
	return &Board{
		settings: applyOptions(opts),
		index:    make(map[string]*Group),
	}
}

func (b *Board) History() int { return b.settings.history }

func (b *Board) Mode() Mode { return b.settings.mode }

func (b *Board) LogScale() bool { return b.settings.logScale }

func (b *Board) Strict() bool { return b.settings.strict }

// Groups returns the groups in creation order.
func (b *Board) Groups() []*Group { return b.groups }

// Lookup returns the named group without creating it.
func (b *Board) Lookup(name string) (*Group, bool) {
	g, ok := b.index[name]
	return g, ok
}

// Group returns the named group, creating it with the board's current
// settings on first reference.
func (b *Board) Group(name string) *Group {
	if g, ok := b.index[name]; ok {
		return g
	}

	g := newGroup(name, b.settings)
	b.groups = append(b.groups, g)
	b.index[name] = g

	return g
}

// Add records value for the named series in the named group.
func (b *Board) Add(group, series string, value float64) error {
	err := b.add(group, series, value)
	if b.settings.observer != nil {
		b.settings.observer.ObserveAdd(group, series, err)
	}

	return err
}

func (b *Board) add(group, series string, value float64) error {
	if group == "" || series == "" {
		return errFactory.WithData(ErrInvalidName, Observation{Group: group, Series: series, Value: value})
	}

	// rejected values must not create rows
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return errFactory.WithData(ErrInvalidValue, Observation{Group: group, Series: series, Value: value})
	}

	return b.Group(group).Row(series).Add(value)
}

// Declare fixes the row layout of the named group for AddValues.
func (b *Board) Declare(group string, rows ...string) error {
	if group == "" {
		return errFactory.WithData(ErrInvalidName, Observation{})
	}

	return b.Group(group).Declare(rows...)
}

// AddValues adds one value per declared row of the named group.
func (b *Board) AddValues(group string, values []float64) error {
	g, ok := b.Lookup(group)
	if !ok {
		return errFactory.WithData(ErrDimensionMismatch, DimensionMismatch{Group: group, Got: len(values)})
	}

	err := g.AddValues(values)
	if b.settings.observer != nil {
		for _, name := range g.Declared() {
			b.settings.observer.ObserveAdd(group, name, err)
		}
	}

	return err
}

func (b *Board) SetHistory(n int) error {
	if n < 0 {
		return errFactory.WithData(ErrInvalidHistory, n)
	}

	for _, g := range b.groups {
		if err := g.SetHistory(n); err != nil {
			return err
		}
	}
	b.settings.history = n

	return nil
}

func (b *Board) SetMode(m Mode) {
	for _, g := range b.groups {
		g.SetMode(m)
	}
	b.settings.mode = m
}

func (b *Board) SetLogScale(on bool) {
	for _, g := range b.groups {
		g.SetLogScale(on)
	}
	b.settings.logScale = on
}

func (b *Board) SetStrict(on bool) {
	for _, g := range b.groups {
		g.setStrict(on)
	}
	b.settings.strict = on
}

// Extrema returns, per series name, the minimum and maximum across every
// non-empty series of that name on the board.
func (b *Board) Extrema() (minByName, maxByName map[string]float64) {
	minByName = make(map[string]float64)
	maxByName = make(map[string]float64)

	for _, g := range b.groups {
		for _, row := range g.rows {
			if row.Len() == 0 {
				continue
			}

			lo, hi := row.LocalExtrema()
			if hi > lookupOr(maxByName, row.name, math.Inf(-1)) {
				maxByName[row.name] = hi
			}
			if lo < lookupOr(minByName, row.name, math.Inf(1)) {
				minByName[row.name] = lo
			}
		}
	}

	return minByName, maxByName
}

// Update recomputes global extrema for every series name, writes them into
// every series, and only then updates each group. Groups must not be
// updated before all global extrema are in place, otherwise early groups
// would scale against a partial board.
func (b *Board) Update() error {
	start := time.Now()

	minByName, maxByName := b.Extrema()

	for _, g := range b.groups {
		for _, row := range g.rows {
			hi, ok := maxByName[row.name]
			if !ok {
				row.SetGlobalExtrema(0, 0)
				continue
			}
			row.SetGlobalExtrema(minByName[row.name], hi)
		}
	}

	var errs *multierror.Error
	stats := UpdateStats{Groups: len(b.groups)}
	for _, g := range b.groups {
		violations, err := g.update()
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		stats.Violations += violations
		stats.Series += len(g.rows)
		for _, row := range g.rows {
			stats.Cells += len(row.visible)
		}
	}

	err := errs.ErrorOrNil()
	stats.Failed = err != nil
	stats.Seconds = time.Since(start).Seconds()

	b.settings.log.Debug().
		Int("groups", stats.Groups).
		Int("series", stats.Series).
		Int("cells", stats.Cells).
		Int("violations", stats.Violations).
		Bool("unsupported_mode", isUnsupportedMode(err)).
		Msg("Heat map updated")

	if b.settings.observer != nil {
		b.settings.observer.ObserveUpdate(stats)
	}

	return err
}

func lookupOr(m map[string]float64, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		return v
	}

	return def
}
