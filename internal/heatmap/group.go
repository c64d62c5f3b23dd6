package heatmap

import (
	"math"

	"codeberg.org/mutker/heatboard/internal/errors"
	"github.com/hashicorp/go-multierror"
)

// Group is a named collection of series sharing history, mode and log-scale
// settings. Setting changes fan out to existing rows and are remembered for
// rows created later.
type Group struct {
	name     string
	settings settings

	rows     []*Series
	index    map[string]*Series
	declared []string

	min, max float64
}

// NewGroup returns an empty group.
func NewGroup(name string, opts ...Option) *Group {
	return newGroup(name, applyOptions(opts))
}

func newGroup(name string, s settings) *Group {
	return &Group{
		name:     name,
		settings: s,
		index:    make(map[string]*Series),
	}
}

func (g *Group) Name() string { return g.name }

func (g *Group) History() int { return g.settings.history }

func (g *Group) Mode() Mode { return g.settings.mode }

func (g *Group) LogScale() bool { return g.settings.logScale }

// Extrema returns the group-wide extrema computed by the last Update.
func (g *Group) Extrema() (lo, hi float64) { return g.min, g.max }

// Rows returns the rows in creation order.
func (g *Group) Rows() []*Series { return g.rows }

// Lookup returns the named row without creating it.
func (g *Group) Lookup(name string) (*Series, bool) {
	row, ok := g.index[name]
	return row, ok
}

// Row returns the named row, creating it with the group's current settings
// on first reference.
func (g *Group) Row(name string) *Series {
	if row, ok := g.index[name]; ok {
		return row
	}

	row := newSeries(name, g.settings)
	g.rows = append(g.rows, row)
	g.index[name] = row

	return row
}

// Declare fixes the row layout used by AddValues. Rows are created as
// needed; declaring again replaces the previous layout.
func (g *Group) Declare(names ...string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return errFactory.WithData(ErrInvalidName, Observation{Group: g.name})
		}
		if _, dup := seen[name]; dup {
			return errFactory.WithData(ErrDuplicateRowName, Observation{Group: g.name, Series: name})
		}
		seen[name] = struct{}{}
	}

	for _, name := range names {
		g.Row(name)
	}
	g.declared = append([]string(nil), names...)

	return nil
}

// Declared returns the row names fixed by Declare.
func (g *Group) Declared() []string { return g.declared }

// AddValues adds one value to each declared row, in declaration order.
// Nothing is added unless the arity matches and every value is finite.
func (g *Group) AddValues(values []float64) error {
	if len(values) != len(g.declared) {
		return errFactory.WithData(ErrDimensionMismatch, DimensionMismatch{
			Group:    g.name,
			Expected: len(g.declared),
			Got:      len(values),
		})
	}

	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errFactory.WithData(ErrInvalidValue, Observation{
				Group:  g.name,
				Series: g.declared[i],
				Value:  v,
			})
		}
	}

	for i, v := range values {
		if err := g.Row(g.declared[i]).Add(v); err != nil {
			return err
		}
	}

	return nil
}

func (g *Group) SetHistory(n int) error {
	if n < 0 {
		return errFactory.WithData(ErrInvalidHistory, n)
	}

	for _, row := range g.rows {
		if err := row.SetHistory(n); err != nil {
			return err
		}
	}
	g.settings.history = n

	return nil
}

func (g *Group) SetMode(m Mode) {
	for _, row := range g.rows {
		row.SetMode(m)
	}
	g.settings.mode = m
}

func (g *Group) SetLogScale(on bool) {
	for _, row := range g.rows {
		row.SetLogScale(on)
	}
	g.settings.logScale = on
}

func (g *Group) setStrict(on bool) { g.settings.strict = on }

// refreshExtrema computes the extrema across every non-empty row and hands
// them to each row for ModeGroup scaling.
func (g *Group) refreshExtrema() {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range g.rows {
		if row.Len() == 0 {
			continue
		}
		rowMin, rowMax := row.LocalExtrema()
		lo = math.Min(lo, rowMin)
		hi = math.Max(hi, rowMax)
	}

	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	g.min, g.max = lo, hi

	for _, row := range g.rows {
		row.setGroupExtrema(lo, hi)
	}
}

// Update refreshes the group extrema and then updates every row. Rows are
// independent once their extrema are set. Scale violations are logged; they
// are returned only in strict mode. Unsupported modes are always returned.
func (g *Group) Update() error {
	_, err := g.update()
	return err
}

func (g *Group) update() (int, error) {
	g.refreshExtrema()

	var errs *multierror.Error
	violations := 0
	for _, row := range g.rows {
		for _, err := range flatten(row.Update()) {
			v, ok := violationOf(err)
			if !ok {
				errs = multierror.Append(errs, err)
				continue
			}

			violations++
			v.Group = g.name
			g.settings.log.Warn().
				Str("group", v.Group).
				Str("series", v.Series).
				Str("mode", v.Mode.String()).
				Float64("value", v.Value).
				Float64("scaled", v.Scaled).
				Msg("Scaled value outside [-1, 1], extremum tracking is inconsistent")

			if g.settings.strict {
				errs = multierror.Append(errs, errFactory.WithData(ErrScaleInvariant, v))
			}
		}
	}

	return violations, errs.ErrorOrNil()
}

// isUnsupportedMode reports whether err was caused by an unknown Mode.
func isUnsupportedMode(err error) bool {
	return errors.HasCode(err, ErrUnsupportedMode)
}
