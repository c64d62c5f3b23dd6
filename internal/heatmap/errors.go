package heatmap

import (
	"fmt"

	"codeberg.org/mutker/heatboard/internal/errors"
	"github.com/hashicorp/go-multierror"
)

const (
	ErrUnsupportedMode   = errors.ErrorCode("heatmap_unsupported_mode")
	ErrScaleInvariant    = errors.ErrorCode("heatmap_scale_invariant_violation")
	ErrDimensionMismatch = errors.ErrorCode("heatmap_dimension_mismatch")
	ErrInvalidValue      = errors.ErrorCode("heatmap_invalid_value")
	ErrInvalidHistory    = errors.ErrorCode("heatmap_invalid_history")
	ErrInvalidName       = errors.ErrorCode("heatmap_invalid_name")
	ErrDuplicateRowName  = errors.ErrorCode("heatmap_duplicate_row_name")
)

var errFactory = errors.New()

func init() {
	errors.RegisterMessage(ErrUnsupportedMode, "Unsupported heat map mode")
	errors.RegisterMessage(ErrScaleInvariant, "Scaled value outside [-1, 1]")
	errors.RegisterMessage(ErrDimensionMismatch, "Value count does not match declared rows")
	errors.RegisterMessage(ErrInvalidValue, "Observation is not a finite number")
	errors.RegisterMessage(ErrInvalidHistory, "History limit must not be negative")
	errors.RegisterMessage(ErrInvalidName, "Name must not be empty")
	errors.RegisterMessage(ErrDuplicateRowName, "Row declared more than once")
}

// Violation describes a scaled value whose magnitude exceeded 1.
type Violation struct {
	Group  string
	Series string
	Mode   Mode
	Value  float64
	Scaled float64
}

func (v Violation) String() string {
	return fmt.Sprintf("group=%q series=%q mode=%s value=%g scaled=%g",
		v.Group, v.Series, v.Mode, v.Value, v.Scaled)
}

// Observation identifies a rejected input value.
type Observation struct {
	Group  string
	Series string
	Value  float64
}

func (o Observation) String() string {
	return fmt.Sprintf("group=%q series=%q value=%g", o.Group, o.Series, o.Value)
}

// DimensionMismatch describes an AddValues call with the wrong arity.
type DimensionMismatch struct {
	Group    string
	Expected int
	Got      int
}

func (d DimensionMismatch) String() string {
	return fmt.Sprintf("group=%q expected=%d got=%d", d.Group, d.Expected, d.Got)
}

// Violations extracts every scale violation carried by err.
func Violations(err error) []Violation {
	var out []Violation
	for _, e := range flatten(err) {
		if v, ok := violationOf(e); ok {
			out = append(out, v)
		}
	}

	return out
}

func violationOf(err error) (Violation, bool) {
	var coded errors.Error
	if !errors.As(err, &coded) || coded.Code() != ErrScaleInvariant {
		return Violation{}, false
	}
	v, ok := coded.GetData().(Violation)

	return v, ok
}

// flatten expands a multierror into its members.
func flatten(err error) []error {
	if err == nil {
		return nil
	}

	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []error
		for _, e := range merr.Errors {
			out = append(out, flatten(e)...)
		}
		return out
	}

	return []error{err}
}
