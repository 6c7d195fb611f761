package variable

import (
	"fmt"

	"github.com/dimarray/dimarray/types/dims"
	"github.com/dimarray/dimarray/types/units"
)

// The error taxonomy of the package. Each kind carries the actual and
// expected shapes, units or kinds so callers can format their own
// messages; Error() renders a default one.

// DimensionError reports mismatching, missing or otherwise unusable
// dimensions.
type DimensionError struct {
	Expected dims.Dimensions
	Actual   dims.Dimensions
	Msg      string
}

func (e *DimensionError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("expected dimensions %s, got %s", e.Expected, e.Actual)
}

func dimensionMismatch(expected, actual dims.Dimensions) error {
	return &DimensionError{Expected: expected, Actual: actual}
}

func dimensionNotFound(in dims.Dimensions, label dims.Dim) error {
	return &DimensionError{
		Expected: in,
		Msg:      fmt.Sprintf("expected dimension %s to be a dimension of %s", label, in),
	}
}

// UnitError reports incompatible units, or an attempt to change the
// unit through a partial view.
type UnitError struct {
	A, B units.Unit
	Msg  string
}

func (e *UnitError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("expected unit %s to be equal to %s", e.A, e.B)
}

func unitMismatch(a, b units.Unit) error { return &UnitError{A: a, B: b} }

// KindError reports an element-kind mismatch or arithmetic attempted
// on a non-arithmetic kind.
type KindError struct {
	Expected Kind
	Actual   Kind
	Msg      string
}

func (e *KindError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("underlying data types do not match: expected %s, got %s", e.Expected, e.Actual)
}

func kindMismatch(expected, actual Kind) error {
	return &KindError{Expected: expected, Actual: actual}
}

func notArithmetic(k Kind) error {
	return &KindError{Actual: k, Msg: fmt.Sprintf("%s is not an arithmetic type, cannot apply operand", k)}
}

// SliceError reports out-of-range slice indices.
type SliceError struct {
	Dims  dims.Dimensions
	Slice Slice
}

func (e *SliceError) Error() string {
	return fmt.Sprintf("expected %s to be in %s", e.Slice, e.Dims)
}

// SparseError reports an unsupported sparse/dense combination.
type SparseError struct {
	Msg string
}

func (e *SparseError) Error() string { return e.Msg }

// InvalidStateError reports mutation through a const view or resize of
// a non-owning view.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }

func errConstView() error {
	return &InvalidStateError{Msg: "view is const, cannot mutate data"}
}

func errResizeView() error {
	return &InvalidStateError{Msg: "cannot resize a non-owning view"}
}

func expectUnitEqual(a, b units.Unit) error {
	if !a.Equal(b) {
		return unitMismatch(a, b)
	}
	return nil
}

func expectKindEqual(a, b Kind) error {
	if a != b {
		return kindMismatch(a, b)
	}
	return nil
}

func expectDimsEqual(a, b dims.Dimensions) error {
	if !a.Equal(b) {
		return dimensionMismatch(a, b)
	}
	return nil
}
